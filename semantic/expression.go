// expression.go contains the expression analysis engine. The parser's
// Reverse-Polish element sequence is first rebuilt into an operation tree,
// then evaluated with constant folding: subtrees whose leaves are all
// compile-time constants fold without emitting a single instruction, and
// everything else lowers to instructions in strict left-to-right order.

package semantic

import (
	"math/big"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/token"
)

// exprNode is one node of the rebuilt operation tree. Leaves carry the
// operand object; interior nodes carry the operator and one or two
// children.
type exprNode struct {
	location   token.Location
	operand    ast.ExpressionObject
	isOperator bool
	operator   ast.Operator
	left       *exprNode
	right      *exprNode
}

// unary operators consume one tree node instead of two.
func isUnaryOperator(operator ast.Operator) bool {
	switch operator {
	case ast.OperatorNot, ast.OperatorBitwiseNot, ast.OperatorNegation:
		return true
	}
	return false
}

// buildTree rebuilds the Reverse-Polish element sequence into an operation
// tree. The sequence is well-formed by construction, so a malformed stack
// is an internal defect surfaced as an error.
func buildTree(expression ast.Expression) (*exprNode, error) {
	if expression.IsUnit() {
		return &exprNode{
			location: expression.Location,
			operand:  ast.TupleOperand{Tuple: ast.TupleExpression{Location: expression.Location}},
		}, nil
	}

	stack := []*exprNode{}
	for _, expressionElement := range expression.Elements {
		switch object := expressionElement.Object.(type) {
		case ast.OperatorElement:
			node := &exprNode{
				location:   expressionElement.Location,
				isOperator: true,
				operator:   object.Operator,
			}
			if isUnaryOperator(object.Operator) {
				if len(stack) < 1 {
					return nil, errorAt(expressionElement.Location, KindInvalidPlace,
						"malformed expression sequence")
				}
				node.left = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			} else {
				if len(stack) < 2 {
					return nil, errorAt(expressionElement.Location, KindInvalidPlace,
						"malformed expression sequence")
				}
				node.right = stack[len(stack)-1]
				node.left = stack[len(stack)-2]
				stack = stack[:len(stack)-2]
			}
			stack = append(stack, node)
		default:
			stack = append(stack, &exprNode{
				location: expressionElement.Location,
				operand:  expressionElement.Object,
			})
		}
	}
	if len(stack) != 1 {
		return nil, errorAt(expression.Location, KindInvalidPlace,
			"malformed expression sequence")
	}
	return stack[0], nil
}

// element is the result of analyzing one tree node: exactly one of the
// variants is set.
type element struct {
	location token.Location

	constant  Constant
	valueType *Type
	place     *Place
	item      *Item
	typeRef   *Type
	argList   *ast.ListOperand
}

func constantElement(constant Constant, at token.Location) element {
	return element{location: at, constant: constant}
}

func valueElement(valueType Type, at token.Location) element {
	return element{location: at, valueType: &valueType}
}

// evalExpression analyzes a whole expression.
func (a *Analyzer) evalExpression(expression ast.Expression) (element, error) {
	tree, err := buildTree(expression)
	if err != nil {
		return element{}, err
	}
	return a.evalNode(tree)
}

// isConstNode reports whether a subtree folds to a compile-time constant.
// Resolution failures make the subtree non-constant here; the real
// evaluation surfaces the error.
func (a *Analyzer) isConstNode(node *exprNode) bool {
	if node.isOperator {
		switch node.operator {
		case ast.OperatorAssignment, ast.OperatorIndex, ast.OperatorField, ast.OperatorCall:
			return false
		case ast.OperatorPath:
			item, err := a.resolvePathNode(node)
			return err == nil && item.Variant == ItemConstant
		case ast.OperatorCasting:
			return a.isConstNode(node.left)
		}
		if isUnaryOperator(node.operator) {
			return a.isConstNode(node.left)
		}
		return a.isConstNode(node.left) && a.isConstNode(node.right)
	}

	switch object := node.operand.(type) {
	case ast.IntegerLiteral, ast.BooleanLiteral, ast.StringLiteral:
		return true
	case ast.Identifier:
		item, err := a.scope.Resolve(object.Name)
		return err == nil && item.Variant == ItemConstant
	}
	return false
}

// resolvePathNode resolves a subtree of identifiers joined by the path
// operator to a scope item.
func (a *Analyzer) resolvePathNode(node *exprNode) (*Item, error) {
	if !node.isOperator {
		identifier, ok := node.operand.(ast.Identifier)
		if !ok {
			return nil, errorAt(node.location, KindUnresolvedIdentifier,
				"expected a path of identifiers")
		}
		item, err := a.scope.Resolve(identifier.Name)
		return item, withLocation(err, node.location)
	}
	if node.operator != ast.OperatorPath {
		return nil, errorAt(node.location, KindUnresolvedIdentifier,
			"expected a path of identifiers")
	}
	parent, err := a.resolvePathNode(node.left)
	if err != nil {
		return nil, err
	}
	member, ok := node.right.operand.(ast.Identifier)
	if !ok {
		return nil, errorAt(node.right.location, KindUnresolvedIdentifier,
			"expected an identifier after '::'")
	}
	if parent.Namespace == nil {
		return nil, errorAt(node.location, KindUnresolvedIdentifier,
			"'%s' has no members", parent.Identifier)
	}
	item, err := parent.Namespace.ResolveLocal(member.Name)
	return item, withLocation(err, node.right.location)
}

// evalConstNode folds a subtree to a compile-time constant.
func (a *Analyzer) evalConstNode(node *exprNode) (Constant, error) {
	if !node.isOperator {
		switch object := node.operand.(type) {
		case ast.IntegerLiteral:
			constant, err := NewIntegerFromLiteral(object.Digits, object.Base)
			return constant, withLocation(err, node.location)
		case ast.BooleanLiteral:
			return BooleanConstant{Value: object.Value}, nil
		case ast.StringLiteral:
			return StringConstant{Value: object.Value}, nil
		case ast.Identifier:
			item, err := a.scope.Resolve(object.Name)
			if err != nil {
				return nil, withLocation(err, node.location)
			}
			if item.Variant != ItemConstant {
				return nil, errorAt(node.location, KindConstantExpected,
					"'%s' is not a constant", object.Name)
			}
			return item.Constant, nil
		}
		return nil, errorAt(node.location, KindConstantExpected,
			"expected a constant expression")
	}

	switch node.operator {
	case ast.OperatorPath:
		item, err := a.resolvePathNode(node)
		if err != nil {
			return nil, err
		}
		if item.Variant != ItemConstant {
			return nil, errorAt(node.location, KindConstantExpected,
				"'%s' is not a constant", item.Identifier)
		}
		return item.Constant, nil

	case ast.OperatorCasting:
		constant, err := a.evalConstNode(node.left)
		if err != nil {
			return nil, err
		}
		typeRef, ok := node.right.operand.(ast.TypeOperand)
		if !ok {
			return nil, errorAt(node.right.location, KindNotAType,
				"expected a type after 'as'")
		}
		target, err := a.resolveType(typeRef.Type)
		if err != nil {
			return nil, err
		}
		result, err := castConstant(constant, target)
		return result, withLocation(err, node.location)

	case ast.OperatorNegation:
		constant, err := a.constInteger(node.left)
		if err != nil {
			return nil, err
		}
		result, err := constant.Negate()
		return result, withLocation(err, node.location)

	case ast.OperatorBitwiseNot:
		constant, err := a.constInteger(node.left)
		if err != nil {
			return nil, err
		}
		result, err := constant.BitwiseNot()
		return result, withLocation(err, node.location)

	case ast.OperatorNot:
		constant, err := a.constBoolean(node.left)
		if err != nil {
			return nil, err
		}
		return BooleanConstant{Value: !constant.Value}, nil

	case ast.OperatorAnd, ast.OperatorOr, ast.OperatorXor:
		left, err := a.constBoolean(node.left)
		if err != nil {
			return nil, err
		}
		right, err := a.constBoolean(node.right)
		if err != nil {
			return nil, err
		}
		switch node.operator {
		case ast.OperatorAnd:
			return BooleanConstant{Value: left.Value && right.Value}, nil
		case ast.OperatorOr:
			return BooleanConstant{Value: left.Value || right.Value}, nil
		default:
			return BooleanConstant{Value: left.Value != right.Value}, nil
		}

	case ast.OperatorRange, ast.OperatorRangeInclusive:
		left, err := a.constInteger(node.left)
		if err != nil {
			return nil, err
		}
		right, err := a.constInteger(node.right)
		if err != nil {
			return nil, err
		}
		var result RangeConstant
		if node.operator == ast.OperatorRange {
			result, err = left.Range(right)
		} else {
			result, err = left.RangeInclusive(right)
		}
		return result, withLocation(err, node.location)
	}

	// the remaining operators are the integer/boolean binary forms
	leftConstant, err := a.evalConstNode(node.left)
	if err != nil {
		return nil, err
	}
	rightConstant, err := a.evalConstNode(node.right)
	if err != nil {
		return nil, err
	}

	if leftBoolean, ok := leftConstant.(BooleanConstant); ok {
		rightBoolean, ok := rightConstant.(BooleanConstant)
		if !ok {
			return nil, withLocation(
				typesMismatch("Equals", leftConstant.Type(), rightConstant.Type()), node.location)
		}
		switch node.operator {
		case ast.OperatorEquals:
			return BooleanConstant{Value: leftBoolean.Value == rightBoolean.Value}, nil
		case ast.OperatorNotEquals:
			return BooleanConstant{Value: leftBoolean.Value != rightBoolean.Value}, nil
		}
		return nil, errorAt(node.location, KindTypesMismatch,
			"operator '%s' is not defined for booleans", node.operator)
	}

	left, ok := leftConstant.(IntegerConstant)
	if !ok {
		return nil, errorAt(node.location, KindNotAValue,
			"'%s' cannot be used in an arithmetic expression", leftConstant.Type())
	}
	right, ok := rightConstant.(IntegerConstant)
	if !ok {
		return nil, errorAt(node.location, KindNotAValue,
			"'%s' cannot be used in an arithmetic expression", rightConstant.Type())
	}

	var result Constant
	switch node.operator {
	case ast.OperatorAddition:
		result, err = left.Add(right)
	case ast.OperatorSubtraction:
		result, err = left.Subtract(right)
	case ast.OperatorMultiplication:
		result, err = left.Multiply(right)
	case ast.OperatorDivision:
		result, err = left.Divide(right)
	case ast.OperatorRemainder:
		result, err = left.Remainder(right)
	case ast.OperatorBitwiseOr:
		result, err = left.BitwiseOr(right)
	case ast.OperatorBitwiseXor:
		result, err = left.BitwiseXor(right)
	case ast.OperatorBitwiseAnd:
		result, err = left.BitwiseAnd(right)
	case ast.OperatorBitwiseShiftLeft:
		result, err = left.BitwiseShiftLeft(right)
	case ast.OperatorBitwiseShiftRight:
		result, err = left.BitwiseShiftRight(right)
	case ast.OperatorEquals:
		result, err = left.Equals(right)
	case ast.OperatorNotEquals:
		result, err = left.NotEquals(right)
	case ast.OperatorGreater:
		result, err = left.Greater(right)
	case ast.OperatorLesser:
		result, err = left.Lesser(right)
	case ast.OperatorGreaterEquals:
		result, err = left.GreaterEquals(right)
	case ast.OperatorLesserEquals:
		result, err = left.LesserEquals(right)
	default:
		return nil, errorAt(node.location, KindConstantExpected,
			"operator '%s' cannot appear in a constant expression", node.operator)
	}
	return result, withLocation(err, node.location)
}

func (a *Analyzer) constInteger(node *exprNode) (IntegerConstant, error) {
	constant, err := a.evalConstNode(node)
	if err != nil {
		return IntegerConstant{}, err
	}
	integer, ok := constant.(IntegerConstant)
	if !ok {
		return IntegerConstant{}, errorAt(node.location, KindNotAValue,
			"expected an integer constant, found '%s'", constant.Type())
	}
	return integer, nil
}

func (a *Analyzer) constBoolean(node *exprNode) (BooleanConstant, error) {
	constant, err := a.evalConstNode(node)
	if err != nil {
		return BooleanConstant{}, err
	}
	boolean, ok := constant.(BooleanConstant)
	if !ok {
		return BooleanConstant{}, errorAt(node.location, KindNotAValue,
			"expected a boolean constant, found '%s'", constant.Type())
	}
	return boolean, nil
}

// typeOfNode computes the type of a subtree without emitting instructions.
// It is used to adapt untyped literal constants to the type of their
// runtime counterpart before anything reaches the stack.
func (a *Analyzer) typeOfNode(node *exprNode) (Type, error) {
	if !node.isOperator {
		switch object := node.operand.(type) {
		case ast.IntegerLiteral:
			constant, err := NewIntegerFromLiteral(object.Digits, object.Base)
			if err != nil {
				return Type{}, withLocation(err, node.location)
			}
			return constant.Type(), nil
		case ast.BooleanLiteral:
			return BooleanType(), nil
		case ast.Identifier:
			item, err := a.scope.Resolve(object.Name)
			if err != nil {
				return Type{}, withLocation(err, node.location)
			}
			switch item.Variant {
			case ItemVariable, ItemContract:
				return item.Type, nil
			case ItemConstant:
				return item.Constant.Type(), nil
			}
			return Type{}, errorAt(node.location, KindNotAValue,
				"'%s' is not a value", object.Name)
		case ast.ConditionalOperand:
			thenBlock := object.Conditional.Then
			if thenBlock.Result == nil {
				return UnitType(), nil
			}
			tree, err := buildTree(*thenBlock.Result)
			if err != nil {
				return Type{}, err
			}
			return a.typeOfNode(tree)
		case ast.BlockOperand:
			if object.Block.Result == nil {
				return UnitType(), nil
			}
			tree, err := buildTree(*object.Block.Result)
			if err != nil {
				return Type{}, err
			}
			return a.typeOfNode(tree)
		}
		return Type{}, errorAt(node.location, KindNotAValue, "cannot infer the type here")
	}

	switch node.operator {
	case ast.OperatorEquals, ast.OperatorNotEquals, ast.OperatorGreater, ast.OperatorLesser,
		ast.OperatorGreaterEquals, ast.OperatorLesserEquals,
		ast.OperatorAnd, ast.OperatorOr, ast.OperatorXor, ast.OperatorNot:
		return BooleanType(), nil
	case ast.OperatorCasting:
		typeRef, ok := node.right.operand.(ast.TypeOperand)
		if !ok {
			return Type{}, errorAt(node.right.location, KindNotAType, "expected a type after 'as'")
		}
		return a.resolveType(typeRef.Type)
	case ast.OperatorNegation:
		operand, err := a.typeOfNode(node.left)
		if err != nil {
			return Type{}, err
		}
		return ScalarInteger(true, operand.Bitlength), nil
	case ast.OperatorBitwiseNot:
		return a.typeOfNode(node.left)
	case ast.OperatorPath:
		item, err := a.resolvePathNode(node)
		if err != nil {
			return Type{}, err
		}
		if item.Variant == ItemConstant {
			return item.Constant.Type(), nil
		}
		return Type{}, errorAt(node.location, KindNotAValue,
			"'%s' is not a value", item.Identifier)
	case ast.OperatorCall:
		item, err := a.resolvePathNode(node.left)
		if err != nil {
			return Type{}, err
		}
		if item.Variant != ItemFunction {
			return Type{}, errorAt(node.location, KindNotAValue,
				"'%s' is not callable", item.Identifier)
		}
		return item.Function.Return, nil
	case ast.OperatorField:
		parent, err := a.typeOfNode(node.left)
		if err != nil {
			return Type{}, err
		}
		switch member := node.right.operand.(type) {
		case ast.Identifier:
			field, _, found := parent.Field(member.Name)
			if !found {
				return Type{}, errorAt(node.right.location, KindUnresolvedIdentifier,
					"field '%s' does not exist in '%s'", member.Name, parent)
			}
			return field.Type, nil
		case ast.IntegerLiteral:
			constant, err := NewIntegerFromLiteral(member.Digits, member.Base)
			if err != nil {
				return Type{}, withLocation(err, node.right.location)
			}
			index, err := constant.ToInt()
			if err != nil {
				return Type{}, withLocation(err, node.right.location)
			}
			if parent.Variant != VariantTuple || index >= len(parent.Elements) {
				return Type{}, errorAt(node.right.location, KindInvalidPlace,
					"tuple index %d is invalid for '%s'", index, parent)
			}
			return parent.Elements[index], nil
		}
		return Type{}, errorAt(node.right.location, KindInvalidPlace, "invalid field access")
	case ast.OperatorIndex:
		parent, err := a.typeOfNode(node.left)
		if err != nil {
			return Type{}, err
		}
		if parent.Variant != VariantArray {
			return Type{}, errorAt(node.location, KindInvalidPlace,
				"'%s' cannot be indexed", parent)
		}
		return *parent.Element, nil
	case ast.OperatorAssignment:
		return UnitType(), nil
	}

	// binary arithmetic, bitwise and shift forms: the side that is not a
	// bare literal fixes the type
	if a.isConstNode(node.left) && !a.isConstNode(node.right) {
		return a.typeOfNode(node.right)
	}
	return a.typeOfNode(node.left)
}

// adaptConstant casts a plain integer constant to the type of its runtime
// counterpart when the value fits; enumeration constants and non-integers
// are left untouched so the type check reports the mismatch.
func adaptConstant(constant Constant, target Type) Constant {
	integer, ok := constant.(IntegerConstant)
	if !ok || integer.Enumeration != nil {
		return constant
	}
	if !target.IsInteger() || target.Variant == VariantEnumeration {
		return constant
	}
	if integer.Type().Equals(target) {
		return constant
	}
	adapted, err := integer.Cast(target.IsSigned(), target.Bitlength)
	if err != nil {
		return constant
	}
	return adapted
}

// pushConstant materializes a scalar constant on the evaluation stack.
func (a *Analyzer) pushConstant(constant Constant) (Type, error) {
	switch typed := constant.(type) {
	case UnitConstant:
		return UnitType(), nil
	case BooleanConstant:
		value := big.NewInt(0)
		if typed.Value {
			value = big.NewInt(1)
		}
		a.builder.Emit(bytecode.Push{Value: value, Type: bytecode.BooleanType()})
		return BooleanType(), nil
	case IntegerConstant:
		a.builder.Emit(bytecode.Push{
			Value: new(big.Int).Set(typed.Value),
			Type:  typed.Type().ScalarType(),
		})
		return typed.Type(), nil
	}
	return Type{}, errorf(KindNotAValue,
		"a constant of type '%s' has no runtime representation", constant.Type())
}

// materialize ensures the element's value sits on the evaluation stack and
// returns its type. Places load, constants push, values are already there.
func (a *Analyzer) materialize(e *element) (Type, error) {
	switch {
	case e.valueType != nil:
		return *e.valueType, nil
	case e.constant != nil:
		return a.pushConstant(e.constant)
	case e.place != nil:
		a.emitLoad(*e.place)
		return e.place.Type, nil
	}
	return Type{}, errorAt(e.location, KindNotAValue, "expected a value expression")
}

// emitLoad lowers a place read: data stack loads, indexed loads, storage
// loads with a static slice for sub-fields.
func (a *Analyzer) emitLoad(place Place) {
	size := place.Type.Size()
	switch {
	case place.IsStorage:
		a.builder.Emit(bytecode.StorageLoad{Index: place.StorageIndex, Size: place.StorageSize})
		if place.Address != 0 || size != place.StorageSize {
			a.builder.Emit(bytecode.Slice{
				TotalSize: place.StorageSize,
				Offset:    place.Address,
				SliceSize: size,
			})
		}
	case place.Indexed:
		a.builder.Emit(bytecode.LoadByIndex{
			Address:     place.Address,
			TotalSize:   place.TotalSize,
			ElementSize: place.ElementSize,
		})
	default:
		a.builder.Emit(bytecode.Load{Address: place.Address, Size: size})
	}
}

// emitStore lowers a place write. Storage writes target whole fields.
func (a *Analyzer) emitStore(place Place) error {
	size := place.Type.Size()
	switch {
	case place.IsStorage:
		if place.Address != 0 || size != place.StorageSize {
			return errorAt(place.Location, KindInvalidPlace,
				"only whole storage fields can be assigned")
		}
		a.builder.Emit(bytecode.StorageStore{Index: place.StorageIndex, Size: size})
	case place.Indexed:
		a.builder.Emit(bytecode.StoreByIndex{
			Address:     place.Address,
			TotalSize:   place.TotalSize,
			ElementSize: place.ElementSize,
		})
	default:
		a.builder.Emit(bytecode.Store{Address: place.Address, Size: size})
	}
	return nil
}

// evalPlaceNode analyzes a subtree as an assignable place. Index
// expressions of runtime indices are emitted here, so the index cells sit
// below the later value cells exactly as the indexed store expects.
func (a *Analyzer) evalPlaceNode(node *exprNode) (Place, error) {
	if !node.isOperator {
		identifier, ok := node.operand.(ast.Identifier)
		if !ok {
			return Place{}, errorAt(node.location, KindInvalidPlace,
				"expected an assignable place")
		}
		item, err := a.scope.Resolve(identifier.Name)
		if err != nil {
			return Place{}, withLocation(err, node.location)
		}
		switch item.Variant {
		case ItemVariable:
			return Place{
				Location:   node.location,
				Identifier: identifier.Name,
				Type:       item.Type,
				Mutable:    item.Mutable,
				Address:    item.Address,
			}, nil
		case ItemContract:
			// `self`: the storage root; selecting a field fixes the index
			return Place{
				Location:     node.location,
				Identifier:   identifier.Name,
				Type:         item.Type,
				Mutable:      item.Mutable,
				IsStorage:    true,
				StorageIndex: -1,
			}, nil
		}
		return Place{}, errorAt(node.location, KindInvalidPlace,
			"'%s' is a %s, not an assignable place", identifier.Name, item.Variant)
	}

	switch node.operator {
	case ast.OperatorField:
		parent, err := a.evalPlaceNode(node.left)
		if err != nil {
			return Place{}, err
		}
		switch member := node.right.operand.(type) {
		case ast.Identifier:
			if parent.IsStorage && parent.StorageIndex < 0 {
				return a.selectStorageField(parent, member.Name, node.right.location)
			}
			result, err := parent.SelectField(member.Name)
			return result, withLocation(err, node.right.location)
		case ast.IntegerLiteral:
			constant, err := NewIntegerFromLiteral(member.Digits, member.Base)
			if err != nil {
				return Place{}, withLocation(err, node.right.location)
			}
			index, err := constant.ToInt()
			if err != nil {
				return Place{}, withLocation(err, node.right.location)
			}
			result, err := parent.SelectTupleField(index)
			return result, withLocation(err, node.right.location)
		}
		return Place{}, errorAt(node.right.location, KindInvalidPlace, "invalid field access")

	case ast.OperatorIndex:
		parent, err := a.evalPlaceNode(node.left)
		if err != nil {
			return Place{}, err
		}
		if a.isConstNode(node.right) {
			constant, err := a.constInteger(node.right)
			if err != nil {
				return Place{}, err
			}
			index, err := constant.ToInt()
			if err != nil {
				return Place{}, withLocation(err, node.right.location)
			}
			result, err := parent.SelectConstantIndex(index)
			return result, withLocation(err, node.location)
		}
		if parent.IsStorage {
			return Place{}, errorAt(node.location, KindInvalidPlace,
				"storage fields cannot be indexed with a runtime value")
		}
		indexElement, err := a.evalNode(node.right)
		if err != nil {
			return Place{}, err
		}
		indexType, err := a.materialize(&indexElement)
		if err != nil {
			return Place{}, withLocation(err, node.right.location)
		}
		if !indexType.IsInteger() || indexType.IsSigned() {
			return Place{}, errorAt(node.right.location, KindTypesMismatch+"Index",
				"the index must be an unsigned integer, found '%s'", indexType)
		}
		result, err := parent.SelectRuntimeIndex()
		return result, withLocation(err, node.location)
	}

	return Place{}, errorAt(node.location, KindInvalidPlace, "expected an assignable place")
}

// selectStorageField narrows the storage root to a declared field.
func (a *Analyzer) selectStorageField(root Place, name string, at token.Location) (Place, error) {
	index := 0
	for _, field := range root.Type.Fields {
		if field.Name == name {
			root.StorageIndex = index
			root.StorageSize = field.Type.Size()
			root.Address = 0
			root.Type = field.Type
			return root, nil
		}
		index++
	}
	return Place{}, errorAt(at, KindUnresolvedIdentifier,
		"storage field '%s' does not exist in '%s'", name, root.Type)
}

// expression_eval.go contains the runtime half of expression analysis:
// lowering non-constant subtrees to instructions in left-to-right order,
// conditionals with both-branches-always-execute semantics, match lowering
// and calls.

package semantic

import (
	"math/big"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/token"
)

// binaryInstructions maps runtime binary operators to their instructions.
var binaryInstructions = map[ast.Operator]bytecode.Instruction{
	ast.OperatorOr:                bytecode.Or{},
	ast.OperatorXor:               bytecode.Xor{},
	ast.OperatorAnd:               bytecode.And{},
	ast.OperatorEquals:            bytecode.Eq{},
	ast.OperatorNotEquals:         bytecode.Ne{},
	ast.OperatorGreaterEquals:     bytecode.Ge{},
	ast.OperatorLesserEquals:      bytecode.Le{},
	ast.OperatorGreater:           bytecode.Gt{},
	ast.OperatorLesser:            bytecode.Lt{},
	ast.OperatorBitwiseOr:         bytecode.BitwiseOr{},
	ast.OperatorBitwiseXor:        bytecode.BitwiseXor{},
	ast.OperatorBitwiseAnd:        bytecode.BitwiseAnd{},
	ast.OperatorBitwiseShiftLeft:  bytecode.BitwiseShiftLeft{},
	ast.OperatorBitwiseShiftRight: bytecode.BitwiseShiftRight{},
	ast.OperatorAddition:          bytecode.Add{},
	ast.OperatorSubtraction:       bytecode.Sub{},
	ast.OperatorMultiplication:    bytecode.Mul{},
	ast.OperatorDivision:          bytecode.Div{},
	ast.OperatorRemainder:         bytecode.Rem{},
}

// operatorKindNames maps operators to the mismatch kind suffix they report
// under, e.g. TypesMismatchAddition.
var operatorKindNames = map[ast.Operator]string{
	ast.OperatorOr:                "Or",
	ast.OperatorXor:               "Xor",
	ast.OperatorAnd:               "And",
	ast.OperatorEquals:            "Equals",
	ast.OperatorNotEquals:         "NotEquals",
	ast.OperatorGreaterEquals:     "GreaterEquals",
	ast.OperatorLesserEquals:      "LesserEquals",
	ast.OperatorGreater:           "Greater",
	ast.OperatorLesser:            "Lesser",
	ast.OperatorBitwiseOr:         "BitwiseOr",
	ast.OperatorBitwiseXor:        "BitwiseXor",
	ast.OperatorBitwiseAnd:        "BitwiseAnd",
	ast.OperatorBitwiseShiftLeft:  "BitwiseShiftLeft",
	ast.OperatorBitwiseShiftRight: "BitwiseShiftRight",
	ast.OperatorAddition:          "Addition",
	ast.OperatorSubtraction:       "Subtraction",
	ast.OperatorMultiplication:    "Multiplication",
	ast.OperatorDivision:          "Division",
	ast.OperatorRemainder:         "Remainder",
}

// evalNode analyzes one tree node, folding constant subtrees and lowering
// everything else.
func (a *Analyzer) evalNode(node *exprNode) (element, error) {
	if a.isConstNode(node) {
		constant, err := a.evalConstNode(node)
		if err != nil {
			return element{}, err
		}
		return constantElement(constant, node.location), nil
	}

	if !node.isOperator {
		return a.evalOperand(node)
	}

	switch node.operator {
	case ast.OperatorAssignment:
		return a.evalAssignment(node)
	case ast.OperatorRange, ast.OperatorRangeInclusive:
		return element{}, errorAt(node.location, KindConstantExpected,
			"range bounds must be compile-time constants")
	case ast.OperatorCasting:
		return a.evalCast(node)
	case ast.OperatorNot, ast.OperatorBitwiseNot, ast.OperatorNegation:
		return a.evalUnary(node)
	case ast.OperatorIndex, ast.OperatorField:
		return a.evalAccess(node)
	case ast.OperatorCall:
		return a.evalCall(node)
	case ast.OperatorPath:
		item, err := a.resolvePathNode(node)
		if err != nil {
			return element{}, err
		}
		if item.Variant == ItemConstant {
			return constantElement(item.Constant, node.location), nil
		}
		return element{location: node.location, item: item}, nil
	}

	return a.evalBinary(node)
}

// evalOperand analyzes a leaf operand.
func (a *Analyzer) evalOperand(node *exprNode) (element, error) {
	switch object := node.operand.(type) {
	case ast.Identifier:
		item, err := a.scope.Resolve(object.Name)
		if err != nil {
			return element{}, withLocation(err, node.location)
		}
		switch item.Variant {
		case ItemVariable:
			place := Place{
				Location:   node.location,
				Identifier: object.Name,
				Type:       item.Type,
				Mutable:    item.Mutable,
				Address:    item.Address,
			}
			return element{location: node.location, place: &place}, nil
		case ItemConstant:
			return constantElement(item.Constant, node.location), nil
		case ItemContract:
			place := Place{
				Location:     node.location,
				Identifier:   object.Name,
				Type:         item.Type,
				Mutable:      item.Mutable,
				IsStorage:    true,
				StorageIndex: -1,
			}
			return element{location: node.location, place: &place}, nil
		}
		return element{location: node.location, item: item}, nil

	case ast.TypeOperand:
		resolved, err := a.resolveType(object.Type)
		if err != nil {
			return element{}, withLocation(err, node.location)
		}
		return element{location: node.location, typeRef: &resolved}, nil

	case ast.ListOperand:
		list := object
		return element{location: node.location, argList: &list}, nil

	case ast.BlockOperand:
		return a.evalBlock(object.Block)

	case ast.ConditionalOperand:
		return a.evalConditional(object.Conditional)

	case ast.MatchOperand:
		return a.evalMatch(object.Match)

	case ast.ArrayOperand:
		return a.evalArray(object.Array, node.location)

	case ast.TupleOperand:
		return a.evalTuple(object.Tuple, node.location)

	case ast.StructureOperand:
		return a.evalStructure(object.Structure, node.location)
	}

	return element{}, errorAt(node.location, KindNotAValue, "expected an expression operand")
}

// evalBinary lowers a runtime binary operator: the left operand first, the
// right operand second, then the instruction. A constant operand adapts to
// the runtime operand's type before it is pushed.
func (a *Analyzer) evalBinary(node *exprNode) (element, error) {
	kindName := operatorKindNames[node.operator]

	var leftType, rightType Type
	if a.isConstNode(node.left) {
		// the left constant is pushed before the right side is evaluated;
		// its type adapts to the right side's inferred type
		target, err := a.typeOfNode(node.right)
		if err != nil {
			return element{}, err
		}
		constant, err := a.evalConstNode(node.left)
		if err != nil {
			return element{}, err
		}
		leftType, err = a.pushConstant(adaptConstant(constant, target))
		if err != nil {
			return element{}, withLocation(err, node.left.location)
		}
		rightElement, err := a.evalNode(node.right)
		if err != nil {
			return element{}, err
		}
		rightType, err = a.materialize(&rightElement)
		if err != nil {
			return element{}, withLocation(err, node.right.location)
		}
	} else {
		leftElement, err := a.evalNode(node.left)
		if err != nil {
			return element{}, err
		}
		leftType, err = a.materialize(&leftElement)
		if err != nil {
			return element{}, withLocation(err, node.left.location)
		}
		if a.isConstNode(node.right) {
			constant, err := a.evalConstNode(node.right)
			if err != nil {
				return element{}, err
			}
			if node.operator == ast.OperatorBitwiseShiftLeft || node.operator == ast.OperatorBitwiseShiftRight {
				// the shift amount keeps its own type
				rightType, err = a.pushConstant(constant)
			} else {
				rightType, err = a.pushConstant(adaptConstant(constant, leftType))
			}
			if err != nil {
				return element{}, withLocation(err, node.right.location)
			}
		} else {
			rightElement, err := a.evalNode(node.right)
			if err != nil {
				return element{}, err
			}
			rightType, err = a.materialize(&rightElement)
			if err != nil {
				return element{}, withLocation(err, node.right.location)
			}
		}
	}

	resultType, err := a.checkBinary(node.operator, kindName, leftType, rightType)
	if err != nil {
		return element{}, withLocation(err, node.location)
	}

	a.builder.Location(node.location)
	a.builder.Emit(binaryInstructions[node.operator])
	return valueElement(resultType, node.location), nil
}

// checkBinary applies the operator's typing rules and returns the result
// type.
func (a *Analyzer) checkBinary(operator ast.Operator, kindName string, left, right Type) (Type, error) {
	switch operator {
	case ast.OperatorOr, ast.OperatorXor, ast.OperatorAnd:
		if left.Variant != VariantBoolean || right.Variant != VariantBoolean {
			return Type{}, typesMismatch(kindName, left, right)
		}
		return BooleanType(), nil

	case ast.OperatorEquals, ast.OperatorNotEquals:
		if left.Variant == VariantBoolean && right.Variant == VariantBoolean {
			return BooleanType(), nil
		}
		if !left.Equals(right) || !left.IsInteger() {
			return Type{}, typesMismatch(kindName, left, right)
		}
		return BooleanType(), nil

	case ast.OperatorGreater, ast.OperatorLesser, ast.OperatorGreaterEquals, ast.OperatorLesserEquals:
		if !left.Equals(right) || !left.IsInteger() {
			return Type{}, typesMismatch(kindName, left, right)
		}
		return BooleanType(), nil

	case ast.OperatorBitwiseOr, ast.OperatorBitwiseXor, ast.OperatorBitwiseAnd:
		if !left.Equals(right) || !left.IsInteger() {
			return Type{}, typesMismatch(kindName, left, right)
		}
		if err := checkBitwiseOperand(left); err != nil {
			return Type{}, err
		}
		return left, nil

	case ast.OperatorBitwiseShiftLeft, ast.OperatorBitwiseShiftRight:
		if err := checkBitwiseOperand(left); err != nil {
			return Type{}, err
		}
		if !right.IsInteger() || right.IsSigned() {
			return Type{}, errorf(KindTypesMismatch+"Shift",
				"the shift amount must be an unsigned integer, found '%s'", right)
		}
		return left, nil

	case ast.OperatorAddition, ast.OperatorSubtraction, ast.OperatorMultiplication:
		if !left.Equals(right) || !left.IsInteger() {
			return Type{}, typesMismatch(kindName, left, right)
		}
		return left, nil

	case ast.OperatorDivision, ast.OperatorRemainder:
		if !left.Equals(right) || !left.IsInteger() {
			return Type{}, typesMismatch(kindName, left, right)
		}
		if left.IsField() {
			if operator == ast.OperatorDivision {
				return Type{}, errorf(KindForbiddenFieldDivision,
					"the division operator is forbidden for the 'field' type")
			}
			return Type{}, errorf(KindForbiddenFieldRemainder,
				"the remainder operator is forbidden for the 'field' type")
		}
		return left, nil
	}

	return Type{}, errorf(KindTypesMismatch, "operator '%s' is not a binary operator", operator)
}

// checkBitwiseOperand rejects bitwise operations on signed and field
// operands.
func checkBitwiseOperand(operand Type) error {
	if !operand.IsInteger() {
		return errorf(KindTypesMismatch+"Bitwise",
			"bitwise operators expect integers, found '%s'", operand)
	}
	if operand.IsField() {
		return errorf(KindForbiddenFieldBitwise,
			"bitwise operators are forbidden for the 'field' type")
	}
	if operand.IsSigned() {
		return errorf(KindForbiddenSignedBitwise,
			"bitwise operators are forbidden for signed types")
	}
	return nil
}

// evalUnary lowers a runtime unary operator.
func (a *Analyzer) evalUnary(node *exprNode) (element, error) {
	operandElement, err := a.evalNode(node.left)
	if err != nil {
		return element{}, err
	}
	operandType, err := a.materialize(&operandElement)
	if err != nil {
		return element{}, withLocation(err, node.left.location)
	}

	a.builder.Location(node.location)
	switch node.operator {
	case ast.OperatorNot:
		if operandType.Variant != VariantBoolean {
			return element{}, errorAt(node.location, KindTypesMismatch+"Not",
				"'!' expects a boolean, found '%s'", operandType)
		}
		a.builder.Emit(bytecode.Not{})
		return valueElement(BooleanType(), node.location), nil

	case ast.OperatorBitwiseNot:
		if err := checkBitwiseOperand(operandType); err != nil {
			return element{}, withLocation(err, node.location)
		}
		a.builder.Emit(bytecode.BitwiseNot{})
		return valueElement(operandType, node.location), nil

	case ast.OperatorNegation:
		if !operandType.IsInteger() {
			return element{}, errorAt(node.location, KindTypesMismatch+"Negation",
				"'-' expects an integer, found '%s'", operandType)
		}
		if operandType.IsField() {
			return element{}, errorAt(node.location, KindForbiddenFieldNegation,
				"the negation operator is forbidden for the 'field' type")
		}
		a.builder.Emit(bytecode.Neg{})
		return valueElement(ScalarInteger(true, operandType.Bitlength), node.location), nil
	}

	return element{}, errorAt(node.location, KindTypesMismatch, "unknown unary operator")
}

// evalCast lowers a runtime cast. The casting table applies; an identity
// cast emits nothing.
func (a *Analyzer) evalCast(node *exprNode) (element, error) {
	operandElement, err := a.evalNode(node.left)
	if err != nil {
		return element{}, err
	}
	operandType, err := a.materialize(&operandElement)
	if err != nil {
		return element{}, withLocation(err, node.left.location)
	}

	typeRef, ok := node.right.operand.(ast.TypeOperand)
	if !ok {
		return element{}, errorAt(node.right.location, KindNotAType, "expected a type after 'as'")
	}
	target, err := a.resolveType(typeRef.Type)
	if err != nil {
		return element{}, withLocation(err, node.right.location)
	}

	if err := ValidateCasting(operandType, target); err != nil {
		return element{}, withLocation(err, node.location)
	}
	if !operandType.Equals(target) {
		a.builder.Location(node.location)
		a.builder.Emit(bytecode.Cast{Type: target.ScalarType()})
	}
	return valueElement(target, node.location), nil
}

// evalAssignment lowers `place = value`: the place's runtime index cells
// first, the value second, then the store.
func (a *Analyzer) evalAssignment(node *exprNode) (element, error) {
	place, err := a.evalPlaceNode(node.left)
	if err != nil {
		return element{}, err
	}
	if !place.Mutable {
		return element{}, errorAt(node.location, KindNotMutable,
			"cannot assign to the immutable binding '%s'", place.Identifier)
	}

	var valueType Type
	if a.isConstNode(node.right) {
		constant, err := a.evalConstNode(node.right)
		if err != nil {
			return element{}, err
		}
		valueType, err = a.pushConstant(adaptConstant(constant, place.Type))
		if err != nil {
			return element{}, withLocation(err, node.right.location)
		}
	} else {
		valueElem, err := a.evalNode(node.right)
		if err != nil {
			return element{}, err
		}
		valueType, err = a.materialize(&valueElem)
		if err != nil {
			return element{}, withLocation(err, node.right.location)
		}
	}

	if !valueType.Equals(place.Type) {
		return element{}, errorAt(node.location, KindTypesMismatch+"Assignment",
			"cannot assign '%s' to '%s' of type '%s'", valueType, place.Identifier, place.Type)
	}

	a.builder.Location(node.location)
	if err := a.emitStore(place); err != nil {
		return element{}, err
	}
	return constantElement(UnitConstant{}, node.location), nil
}

// isPlaceChain reports whether a subtree is a chain of field and index
// selectors rooted at a variable or the storage root. Place chains stay
// unmaterialized so loads collapse into one instruction.
func (a *Analyzer) isPlaceChain(node *exprNode) bool {
	for node.isOperator {
		if node.operator != ast.OperatorField && node.operator != ast.OperatorIndex {
			return false
		}
		node = node.left
	}
	identifier, ok := node.operand.(ast.Identifier)
	if !ok {
		return false
	}
	item, err := a.scope.Resolve(identifier.Name)
	if err != nil {
		return false
	}
	return item.Variant == ItemVariable || item.Variant == ItemContract
}

// evalAccess lowers field and index access. On places the access narrows
// the place; on materialized values it slices the aggregate on the stack.
func (a *Analyzer) evalAccess(node *exprNode) (element, error) {
	if a.isPlaceChain(node) {
		place, err := a.evalPlaceNode(node)
		if err != nil {
			return element{}, err
		}
		return element{location: node.location, place: &place}, nil
	}

	parentElement, err := a.evalNode(node.left)
	if err != nil {
		return element{}, err
	}
	parentType, err := a.materialize(&parentElement)
	if err != nil {
		return element{}, withLocation(err, node.left.location)
	}

	if node.operator == ast.OperatorField {
		switch member := node.right.operand.(type) {
		case ast.Identifier:
			field, offset, found := parentType.Field(member.Name)
			if !found {
				return element{}, errorAt(node.right.location, KindUnresolvedIdentifier,
					"field '%s' does not exist in '%s'", member.Name, parentType)
			}
			a.builder.Emit(bytecode.Slice{
				TotalSize: parentType.Size(),
				Offset:    offset,
				SliceSize: field.Type.Size(),
			})
			return valueElement(field.Type, node.location), nil
		case ast.IntegerLiteral:
			constant, err := NewIntegerFromLiteral(member.Digits, member.Base)
			if err != nil {
				return element{}, withLocation(err, node.right.location)
			}
			index, err := constant.ToInt()
			if err != nil {
				return element{}, withLocation(err, node.right.location)
			}
			if parentType.Variant != VariantTuple || index < 0 || index >= len(parentType.Elements) {
				return element{}, errorAt(node.right.location, KindInvalidPlace,
					"tuple index %d is invalid for '%s'", index, parentType)
			}
			offset := 0
			for i := 0; i < index; i++ {
				offset += parentType.Elements[i].Size()
			}
			a.builder.Emit(bytecode.Slice{
				TotalSize: parentType.Size(),
				Offset:    offset,
				SliceSize: parentType.Elements[index].Size(),
			})
			return valueElement(parentType.Elements[index], node.location), nil
		}
		return element{}, errorAt(node.right.location, KindInvalidPlace, "invalid field access")
	}

	// index access on a temporary: only constant indices can be resolved
	if parentType.Variant != VariantArray {
		return element{}, errorAt(node.location, KindInvalidPlace,
			"'%s' cannot be indexed", parentType)
	}
	if !a.isConstNode(node.right) {
		return element{}, errorAt(node.right.location, KindConstantExpected,
			"a temporary array value can only be indexed with a constant")
	}
	constant, err := a.constInteger(node.right)
	if err != nil {
		return element{}, err
	}
	index, err := constant.ToInt()
	if err != nil {
		return element{}, withLocation(err, node.right.location)
	}
	if index < 0 || index >= parentType.ArraySize {
		return element{}, errorAt(node.right.location, KindInvalidPlace,
			"index %d is out of bounds of '%s'", index, parentType)
	}
	elementSize := parentType.Element.Size()
	a.builder.Emit(bytecode.Slice{
		TotalSize: parentType.Size(),
		Offset:    index * elementSize,
		SliceSize: elementSize,
	})
	return valueElement(*parentType.Element, node.location), nil
}

// evalBlock analyzes a block in a child scope: its statements, then its
// optional result expression.
func (a *Analyzer) evalBlock(block ast.BlockExpression) (element, error) {
	previousScope := a.scope
	a.scope = NewScope(previousScope)
	defer func() { a.scope = previousScope }()

	for _, statement := range block.Statements {
		if err := a.analyzeStatement(statement); err != nil {
			return element{}, err
		}
	}

	if block.Result == nil {
		return constantElement(UnitConstant{}, block.Location), nil
	}
	return a.evalExpression(*block.Result)
}

// analyzeStatement analyzes one block-level statement.
func (a *Analyzer) analyzeStatement(statement ast.Stmt) error {
	switch typed := statement.(type) {
	case ast.LetStmt:
		return a.analyzeLet(typed)
	case ast.ForStmt:
		return a.analyzeFor(typed)
	case ast.ExpressionStmt:
		a.builder.Location(typed.Location)
		result, err := a.evalExpression(typed.Expression)
		if err != nil {
			return err
		}
		return a.discard(result, typed.Location)
	}
	return errorAt(token.Location{}, KindInvalidPlace, "unsupported statement in this position")
}

// discard drops the cells an expression statement left on the stack.
// Constants and places were never materialized, so they cost nothing.
func (a *Analyzer) discard(result element, at token.Location) error {
	if result.valueType == nil {
		return nil
	}
	size := result.valueType.Size()
	if size > 0 {
		a.builder.Emit(bytecode.Slice{TotalSize: size, Offset: 0, SliceSize: 0})
	}
	return nil
}

// analyzeLet lowers a variable declaration: the initializer is evaluated,
// optionally cast to the declared type, stored into a fresh frame slot and
// bound in the current scope.
func (a *Analyzer) analyzeLet(statement ast.LetStmt) error {
	a.builder.Location(statement.Location)

	tree, err := buildTree(statement.Expression)
	if err != nil {
		return err
	}

	var variableType Type
	if a.isConstNode(tree) {
		constant, err := a.evalConstNode(tree)
		if err != nil {
			return withLocation(err, statement.Location)
		}
		if statement.Type != nil {
			declared, err := a.resolveType(*statement.Type)
			if err != nil {
				return withLocation(err, statement.Type.Location)
			}
			constant, err = castConstant(constant, declared)
			if err != nil {
				return withLocation(err, statement.Location)
			}
		}
		variableType, err = a.pushConstant(constant)
		if err != nil {
			return withLocation(err, statement.Location)
		}
	} else {
		result, err := a.evalExpression(statement.Expression)
		if err != nil {
			return err
		}
		variableType, err = a.materialize(&result)
		if err != nil {
			return withLocation(err, statement.Location)
		}
		if statement.Type != nil {
			declared, err := a.resolveType(*statement.Type)
			if err != nil {
				return withLocation(err, statement.Type.Location)
			}
			if !variableType.Equals(declared) {
				if err := ValidateCasting(variableType, declared); err != nil {
					return withLocation(err, statement.Location)
				}
				a.builder.Emit(bytecode.Cast{Type: declared.ScalarType()})
			}
			variableType = declared
		}
	}

	address := a.allocate(variableType.Size())
	if variableType.Size() > 0 {
		a.builder.Emit(bytecode.Store{Address: address, Size: variableType.Size()})
	}

	return a.scope.Declare(&Item{
		Variant:    ItemVariable,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Type:       variableType,
		Mutable:    statement.Mutable,
		Address:    address,
	})
}

// analyzeFor lowers a bounded range loop. The bounds must fold; the body is
// wrapped in LoopBegin/LoopEnd and the loop variable lives in a dedicated
// frame slot that the epilogue increments each iteration.
func (a *Analyzer) analyzeFor(statement ast.ForStmt) error {
	a.builder.Location(statement.Location)

	tree, err := buildTree(statement.Range)
	if err != nil {
		return err
	}
	boundConstant, err := a.evalConstNode(tree)
	if err != nil {
		return withLocation(err, statement.Location)
	}
	bounds, ok := boundConstant.(RangeConstant)
	if !ok {
		return errorAt(statement.Location, KindConstantExpected,
			"loop bounds must be a constant range")
	}

	loopType := ScalarInteger(bounds.IsSigned, bounds.Bitlength)
	address := a.allocate(1)

	a.builder.Emit(bytecode.Push{
		Value: new(big.Int).Set(bounds.Start),
		Type:  loopType.ScalarType(),
	})
	a.builder.Emit(bytecode.Store{Address: address, Size: 1})
	a.builder.Emit(bytecode.LoopBegin{Iterations: bounds.Iterations()})

	previousScope := a.scope
	a.scope = NewScope(previousScope)
	err = func() error {
		if err := a.scope.Declare(&Item{
			Variant:    ItemVariable,
			Location:   statement.Location,
			Identifier: statement.Identifier,
			Type:       loopType,
			Mutable:    false,
			Address:    address,
		}); err != nil {
			return err
		}

		if statement.While != nil {
			condition, err := a.evalExpression(*statement.While)
			if err != nil {
				return err
			}
			conditionType, err := a.materialize(&condition)
			if err != nil {
				return withLocation(err, statement.Location)
			}
			if conditionType.Variant != VariantBoolean {
				return errorAt(statement.Location, KindTypesMismatch+"Condition",
					"the 'while' condition must be a boolean, found '%s'", conditionType)
			}
			a.builder.Emit(bytecode.If{})
		}

		body, err := a.evalBlock(statement.Body)
		if err != nil {
			return err
		}
		if err := a.discard(body, statement.Location); err != nil {
			return err
		}

		if statement.While != nil {
			a.builder.Emit(bytecode.EndIf{})
		}
		return nil
	}()
	a.scope = previousScope
	if err != nil {
		return err
	}

	// the loop epilogue advances the loop variable
	a.builder.Emit(bytecode.Load{Address: address, Size: 1})
	a.builder.Emit(bytecode.Push{Value: big.NewInt(1), Type: loopType.ScalarType()})
	a.builder.Emit(bytecode.Add{})
	a.builder.Emit(bytecode.Store{Address: address, Size: 1})
	a.builder.Emit(bytecode.LoopEnd{})
	return nil
}

// evalConditional lowers an `if` expression. Both branches always execute;
// the merge selects the surviving values with the condition, so the two
// branches must produce the same type.
func (a *Analyzer) evalConditional(conditional ast.ConditionalExpression) (element, error) {
	condition, err := a.evalExpression(conditional.Condition)
	if err != nil {
		return element{}, err
	}
	conditionType, err := a.materialize(&condition)
	if err != nil {
		return element{}, withLocation(err, conditional.Location)
	}
	if conditionType.Variant != VariantBoolean {
		return element{}, errorAt(conditional.Location, KindTypesMismatch+"Condition",
			"the condition must be a boolean, found '%s'", conditionType)
	}

	a.builder.Location(conditional.Location)
	a.builder.Emit(bytecode.If{})

	thenResult, err := a.evalBlock(conditional.Then)
	if err != nil {
		return element{}, err
	}
	thenType, err := a.materialize(&thenResult)
	if err != nil {
		return element{}, withLocation(err, conditional.Location)
	}

	elseType := UnitType()
	hasElse := conditional.ElseIf != nil || conditional.Else != nil
	if hasElse {
		a.builder.Emit(bytecode.Else{})
		var elseResult element
		if conditional.ElseIf != nil {
			elseResult, err = a.evalConditional(*conditional.ElseIf)
		} else {
			elseResult, err = a.evalBlock(*conditional.Else)
		}
		if err != nil {
			return element{}, err
		}
		elseType, err = a.materialize(&elseResult)
		if err != nil {
			return element{}, withLocation(err, conditional.Location)
		}
	}

	a.builder.Emit(bytecode.EndIf{})

	if !thenType.Equals(elseType) {
		return element{}, errorAt(conditional.Location, KindBranchTypesMismatch,
			"the branches produce different types: '%s' and '%s'", thenType, elseType)
	}
	return valueElement(thenType, conditional.Location), nil
}

// evalMatch lowers a `match` expression into a conditional chain over a
// temporary holding the scrutinee. The last arm must be irrefutable.
func (a *Analyzer) evalMatch(match ast.MatchExpression) (element, error) {
	scrutinee, err := a.evalExpression(match.Scrutinee)
	if err != nil {
		return element{}, err
	}
	scrutineeType, err := a.materialize(&scrutinee)
	if err != nil {
		return element{}, withLocation(err, match.Location)
	}
	if !scrutineeType.IsScalar() {
		return element{}, errorAt(match.Location, KindTypesMismatch+"Match",
			"only scalar values can be matched, found '%s'", scrutineeType)
	}

	if len(match.Arms) == 0 {
		return element{}, errorAt(match.Location, KindMatchNotExhaustive,
			"a match expression needs at least one arm")
	}
	last := match.Arms[len(match.Arms)-1]
	if last.Pattern.Variant != ast.PatternWildcard && last.Pattern.Variant != ast.PatternBinding {
		return element{}, errorAt(last.Pattern.Location, KindMatchNotExhaustive,
			"the last match arm must be '_' or a binding")
	}

	temporary := a.allocate(1)
	a.builder.Emit(bytecode.Store{Address: temporary, Size: 1})

	var resultType *Type
	refutable := match.Arms[:len(match.Arms)-1]
	for _, arm := range refutable {
		patternConstant, err := a.matchPatternConstant(arm.Pattern, scrutineeType)
		if err != nil {
			return element{}, err
		}

		a.builder.Emit(bytecode.Load{Address: temporary, Size: 1})
		if _, err := a.pushConstant(patternConstant); err != nil {
			return element{}, withLocation(err, arm.Pattern.Location)
		}
		a.builder.Emit(bytecode.Eq{})
		a.builder.Emit(bytecode.If{})

		armType, err := a.evalMatchArm(arm.Expression, nil, scrutineeType, temporary)
		if err != nil {
			return element{}, err
		}
		if resultType == nil {
			resultType = &armType
		} else if !armType.Equals(*resultType) {
			return element{}, errorAt(arm.Pattern.Location, KindBranchTypesMismatch,
				"match arms produce different types: '%s' and '%s'", *resultType, armType)
		}
		a.builder.Emit(bytecode.Else{})
	}

	var binding string
	if last.Pattern.Variant == ast.PatternBinding {
		binding = last.Pattern.Binding
	}
	lastType, err := a.evalMatchArm(last.Expression, &binding, scrutineeType, temporary)
	if err != nil {
		return element{}, err
	}
	if resultType == nil {
		resultType = &lastType
	} else if !lastType.Equals(*resultType) {
		return element{}, errorAt(last.Pattern.Location, KindBranchTypesMismatch,
			"match arms produce different types: '%s' and '%s'", *resultType, lastType)
	}

	for range refutable {
		a.builder.Emit(bytecode.EndIf{})
	}

	return valueElement(*resultType, match.Location), nil
}

// matchPatternConstant folds a refutable pattern into the constant it
// compares against, adapted to the scrutinee type.
func (a *Analyzer) matchPatternConstant(pattern ast.Pattern, scrutineeType Type) (Constant, error) {
	var source ast.Expression
	switch pattern.Variant {
	case ast.PatternLiteral:
		source = *pattern.Literal
	case ast.PatternPath:
		source = *pattern.Path
	default:
		return nil, errorAt(pattern.Location, KindMatchNotExhaustive,
			"an irrefutable pattern may only appear last")
	}
	tree, err := buildTree(source)
	if err != nil {
		return nil, err
	}
	constant, err := a.evalConstNode(tree)
	if err != nil {
		return nil, withLocation(err, pattern.Location)
	}
	constant = adaptConstant(constant, scrutineeType)
	if !constant.Type().Equals(scrutineeType) {
		return nil, errorAt(pattern.Location, KindTypesMismatch+"Equals",
			"pattern of type '%s' cannot match a scrutinee of type '%s'",
			constant.Type(), scrutineeType)
	}
	return constant, nil
}

// evalMatchArm analyzes one arm's expression in a child scope, optionally
// binding the scrutinee temporary under a fresh name.
func (a *Analyzer) evalMatchArm(expression ast.Expression, binding *string, scrutineeType Type, temporary int) (Type, error) {
	previousScope := a.scope
	a.scope = NewScope(previousScope)
	defer func() { a.scope = previousScope }()

	if binding != nil && *binding != "" {
		if err := a.scope.Declare(&Item{
			Variant:    ItemVariable,
			Identifier: *binding,
			Type:       scrutineeType,
			Mutable:    false,
			Address:    temporary,
		}); err != nil {
			return Type{}, err
		}
	}

	result, err := a.evalExpression(expression)
	if err != nil {
		return Type{}, err
	}
	return a.materialize(&result)
}

// evalArray lowers an array literal. Elements adapt to the first element's
// type; the repeated form re-walks its element expression per iteration,
// which is sound because expressions are pure.
func (a *Analyzer) evalArray(array ast.ArrayExpression, at token.Location) (element, error) {
	if array.Repeated {
		sizeTree, err := buildTree(*array.Size)
		if err != nil {
			return element{}, err
		}
		sizeConstant, err := a.constInteger(sizeTree)
		if err != nil {
			return element{}, err
		}
		size, err := sizeConstant.ToInt()
		if err != nil {
			return element{}, withLocation(err, at)
		}
		if size <= 0 {
			return element{}, errorAt(at, KindConstantExpected,
				"the array size must be positive, found %d", size)
		}
		var elementType Type
		for i := 0; i < size; i++ {
			result, err := a.evalExpression(array.Elements[0])
			if err != nil {
				return element{}, err
			}
			resultType, err := a.materialize(&result)
			if err != nil {
				return element{}, withLocation(err, at)
			}
			if i == 0 {
				elementType = resultType
			} else if !resultType.Equals(elementType) {
				return element{}, errorAt(at, KindTypesMismatch+"Array",
					"array elements differ in type: '%s' and '%s'", elementType, resultType)
			}
		}
		return valueElement(ArrayOf(elementType, size), at), nil
	}

	if len(array.Elements) == 0 {
		return element{}, errorAt(at, KindConstantExpected,
			"the type of an empty array literal cannot be inferred")
	}

	var elementType Type
	for i, expression := range array.Elements {
		tree, err := buildTree(expression)
		if err != nil {
			return element{}, err
		}
		var resultType Type
		if i > 0 && a.isConstNode(tree) {
			constant, err := a.evalConstNode(tree)
			if err != nil {
				return element{}, err
			}
			resultType, err = a.pushConstant(adaptConstant(constant, elementType))
			if err != nil {
				return element{}, withLocation(err, at)
			}
		} else {
			result, err := a.evalNode(tree)
			if err != nil {
				return element{}, err
			}
			resultType, err = a.materialize(&result)
			if err != nil {
				return element{}, withLocation(err, at)
			}
		}
		if i == 0 {
			elementType = resultType
		} else if !resultType.Equals(elementType) {
			return element{}, errorAt(at, KindTypesMismatch+"Array",
				"array elements differ in type: '%s' and '%s'", elementType, resultType)
		}
	}
	return valueElement(ArrayOf(elementType, len(array.Elements)), at), nil
}

// evalTuple lowers a tuple literal; the empty tuple is the unit value.
func (a *Analyzer) evalTuple(tuple ast.TupleExpression, at token.Location) (element, error) {
	if len(tuple.Elements) == 0 {
		return constantElement(UnitConstant{}, at), nil
	}
	elements := make([]Type, len(tuple.Elements))
	for i, expression := range tuple.Elements {
		result, err := a.evalExpression(expression)
		if err != nil {
			return element{}, err
		}
		resultType, err := a.materialize(&result)
		if err != nil {
			return element{}, withLocation(err, at)
		}
		elements[i] = resultType
	}
	return valueElement(TupleOf(elements), at), nil
}

// evalStructure lowers a structure literal. Fields must appear in the
// declared order and their values adapt to the declared field types.
func (a *Analyzer) evalStructure(structure ast.StructureExpression, at token.Location) (element, error) {
	item, err := a.resolvePathExpression(structure.Path)
	if err != nil {
		return element{}, withLocation(err, at)
	}
	if item.Variant != ItemType || item.Type.Variant != VariantStructure {
		return element{}, errorAt(at, KindNotAType,
			"'%s' is not a structure type", item.Identifier)
	}
	declared := item.Type

	if len(structure.Fields) != len(declared.Fields) {
		return element{}, errorAt(at, KindTypesMismatch+"Structure",
			"'%s' expects %d fields, found %d",
			declared.Identifier, len(declared.Fields), len(structure.Fields))
	}

	for i, field := range structure.Fields {
		declaredField := declared.Fields[i]
		if field.Identifier != declaredField.Name {
			return element{}, errorAt(at, KindTypesMismatch+"Structure",
				"expected field '%s' at position %d, found '%s'",
				declaredField.Name, i+1, field.Identifier)
		}

		tree, err := buildTree(field.Expression)
		if err != nil {
			return element{}, err
		}
		var resultType Type
		if a.isConstNode(tree) {
			constant, err := a.evalConstNode(tree)
			if err != nil {
				return element{}, err
			}
			resultType, err = a.pushConstant(adaptConstant(constant, declaredField.Type))
			if err != nil {
				return element{}, withLocation(err, at)
			}
		} else {
			result, err := a.evalNode(tree)
			if err != nil {
				return element{}, err
			}
			resultType, err = a.materialize(&result)
			if err != nil {
				return element{}, withLocation(err, at)
			}
		}
		if !resultType.Equals(declaredField.Type) {
			return element{}, errorAt(at, KindTypesMismatch+"Structure",
				"field '%s' expects '%s', found '%s'",
				declaredField.Name, declaredField.Type, resultType)
		}
	}
	return valueElement(declared, at), nil
}

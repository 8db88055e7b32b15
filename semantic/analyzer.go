// analyzer.go contains the semantic analysis driver: declaration hoisting,
// statement analysis and application assembly. Expression analysis lives in
// expression.go; the analyzer drives a generator.Builder while walking the
// typed tree, so analysis and instruction flattening happen in one pass.

package semantic

import (
	"math/big"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/generator"
	"github.com/ReggieRumsfeld/zinc/token"
)

// functionBody pairs a hoisted function item with its unanalyzed body.
type functionBody struct {
	function *FunctionType
	isPublic bool
	isMethod bool
	mutates  bool
	self     *Type
	body     ast.BlockExpression
	location token.Location
}

// Analyzer walks the parsed statements, folds constants, checks types and
// drives the bytecode builder.
type Analyzer struct {
	root    *Scope
	scope   *Scope
	builder *generator.Builder

	// functions awaiting body generation, in declaration order.
	pending []functionBody

	// call sites awaiting the callee's final address.
	patches map[*FunctionType][]int

	// contract state of the application being analyzed.
	contract       *Type
	contractFields []bytecode.StorageField

	// current function frame.
	nextAddress int
	returnType  Type
}

// NewAnalyzer creates an analyzer with the standard library bound into the
// root scope.
func NewAnalyzer() *Analyzer {
	root := NewScope(nil)
	declareStdlib(root)
	return &Analyzer{
		root:    root,
		scope:   root,
		builder: generator.New(),
		patches: make(map[*FunctionType][]int),
	}
}

// Analyze checks a parsed module and lowers it to an application: a circuit
// when a `main` function exists, a contract when a contract is declared,
// a library otherwise.
func Analyze(name string, statements []ast.Stmt) (*bytecode.Application, error) {
	analyzer := NewAnalyzer()
	return analyzer.analyze(name, statements)
}

// FoldExpression folds a standalone expression to a compile-time constant
// against a fresh scope; the REPL evaluates its input lines with it.
func FoldExpression(expression ast.Expression) (Constant, error) {
	analyzer := NewAnalyzer()
	tree, err := buildTree(expression)
	if err != nil {
		return nil, err
	}
	return analyzer.evalConstNode(tree)
}

func (a *Analyzer) analyze(name string, statements []ast.Stmt) (*bytecode.Application, error) {
	for _, statement := range statements {
		if err := a.hoistDeclaration(statement); err != nil {
			return nil, err
		}
	}

	for _, pending := range a.pending {
		if err := a.emitFunction(pending); err != nil {
			return nil, err
		}
	}

	a.patchCalls()

	return a.assemble(name)
}

// hoistDeclaration binds one top-level declaration into the module scope.
// Function bodies are deferred so that declaration order does not restrict
// calls between functions.
func (a *Analyzer) hoistDeclaration(statement ast.Stmt) error {
	switch typed := statement.(type) {
	case ast.StructStmt:
		return a.declareStructure(typed)
	case ast.EnumStmt:
		return a.declareEnumeration(typed)
	case ast.TypeStmt:
		aliased, err := a.resolveType(typed.Type)
		if err != nil {
			return withLocation(err, typed.Location)
		}
		return a.scope.Declare(&Item{
			Variant:    ItemType,
			Location:   typed.Location,
			Identifier: typed.Identifier,
			Type:       aliased,
		})
	case ast.ModStmt:
		return a.scope.Declare(&Item{
			Variant:    ItemModule,
			Location:   typed.Location,
			Identifier: typed.Identifier,
			Namespace:  NewScope(nil),
		})
	case ast.UseStmt:
		return a.declareImport(typed)
	case ast.FnStmt:
		return a.declareFunction(typed, nil, false)
	case ast.ContractStmt:
		return a.declareContract(typed)
	case ast.ImplStmt:
		return a.declareImplementation(typed)
	case ast.LetStmt:
		return a.declareModuleConstant(typed)
	}
	return errorAt(token.Location{}, KindInvalidPlace, "unsupported top-level statement")
}

// declareStructure resolves a structure declaration into a named type.
func (a *Analyzer) declareStructure(statement ast.StructStmt) error {
	fields := make([]StructureField, len(statement.Fields))
	for i, field := range statement.Fields {
		fieldType, err := a.resolveType(field.Type)
		if err != nil {
			return withLocation(err, field.Location)
		}
		fields[i] = StructureField{Name: field.Identifier, Type: fieldType}
	}
	structure := Type{
		Variant:    VariantStructure,
		Identifier: statement.Identifier,
		Fields:     fields,
	}
	return a.scope.Declare(&Item{
		Variant:    ItemType,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Type:       structure,
		Namespace:  NewScope(nil),
	})
}

// declareEnumeration resolves an enumeration declaration. Variant constants
// are bound into the enumeration's namespace; every constant carries the
// enumeration identity, which keeps distinct enumerations with identical
// representation non-interchangeable.
func (a *Analyzer) declareEnumeration(statement ast.EnumStmt) error {
	values := make([]*big.Int, len(statement.Variants))
	for i, variant := range statement.Variants {
		constant, err := NewIntegerFromLiteral(variant.Value.Digits, variant.Value.Base)
		if err != nil {
			return withLocation(err, variant.Location)
		}
		values[i] = constant.Value
	}

	bitlength, err := minimalBitlengthBigInts(values, false)
	if err != nil {
		return withLocation(err, statement.Location)
	}

	enumeration := Type{
		Variant:    VariantEnumeration,
		Identifier: statement.Identifier,
		Bitlength:  bitlength,
	}
	for i, variant := range statement.Variants {
		enumeration.EnumVariants = append(enumeration.EnumVariants, EnumVariantValue{
			Name:  variant.Identifier,
			Value: values[i],
		})
	}

	namespace := NewScope(nil)
	item := &Item{
		Variant:    ItemType,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Type:       enumeration,
		Namespace:  namespace,
	}
	if err := a.scope.Declare(item); err != nil {
		return err
	}

	for i, variant := range statement.Variants {
		enumerationType := item.Type
		constant := IntegerConstant{
			Value:       values[i],
			IsSigned:    false,
			Bitlength:   bitlength,
			Enumeration: &enumerationType,
		}
		if err := namespace.Declare(&Item{
			Variant:    ItemConstant,
			Location:   variant.Location,
			Identifier: variant.Identifier,
			Constant:   constant,
		}); err != nil {
			return err
		}
	}
	return nil
}

// declareImport resolves a `use` path and binds the resolved item under its
// last segment name.
func (a *Analyzer) declareImport(statement ast.UseStmt) error {
	item, err := a.resolvePathExpression(statement.Path)
	if err != nil {
		return withLocation(err, statement.Location)
	}
	imported := *item
	return a.scope.Declare(&imported)
}

// declareFunction hoists a function signature; the body is queued for the
// generation pass. When namespace is non-nil the function is bound there
// instead of the module scope (impl blocks and contracts).
func (a *Analyzer) declareFunction(statement ast.FnStmt, namespace *Scope, isMethod bool) error {
	arguments := make([]StructureField, len(statement.Arguments))
	for i, argument := range statement.Arguments {
		argumentType, err := a.resolveType(argument.Type)
		if err != nil {
			return withLocation(err, argument.Location)
		}
		arguments[i] = StructureField{Name: argument.Identifier, Type: argumentType}
	}

	returnType := UnitType()
	if statement.ReturnType != nil {
		resolved, err := a.resolveType(*statement.ReturnType)
		if err != nil {
			return withLocation(err, statement.ReturnType.Location)
		}
		returnType = resolved
	}

	function := &FunctionType{
		Identifier: statement.Identifier,
		Arguments:  arguments,
		Return:     returnType,
	}
	item := &Item{
		Variant:    ItemFunction,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Function:   function,
	}

	target := a.scope
	if namespace != nil {
		target = namespace
	}
	if err := target.Declare(item); err != nil {
		return err
	}

	var self *Type
	if isMethod {
		self = a.contract
	}
	a.pending = append(a.pending, functionBody{
		function: function,
		isPublic: statement.IsPublic,
		isMethod: isMethod,
		mutates:  statement.SelfMutable,
		self:     self,
		body:     statement.Body,
		location: statement.Location,
	})
	return nil
}

// declareContract resolves a contract declaration: the ordered storage
// schema and the method set. Only one contract may exist per application.
func (a *Analyzer) declareContract(statement ast.ContractStmt) error {
	if a.contract != nil {
		return errorAt(statement.Location, KindDuplicateIdentifier,
			"only one contract may be declared per application")
	}

	fields := make([]StructureField, len(statement.Fields))
	for i, field := range statement.Fields {
		fieldType, err := a.resolveType(field.Type)
		if err != nil {
			return withLocation(err, field.Location)
		}
		fields[i] = StructureField{Name: field.Identifier, Type: fieldType}
		a.contractFields = append(a.contractFields, bytecode.StorageField{
			Name: field.Identifier,
			Type: fieldType.ToDataType(),
		})
	}

	contract := Type{
		Variant:    VariantContract,
		Identifier: statement.Identifier,
		Fields:     fields,
	}
	a.contract = &contract

	namespace := NewScope(nil)
	if err := a.scope.Declare(&Item{
		Variant:    ItemContract,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Type:       contract,
		Namespace:  namespace,
	}); err != nil {
		return err
	}

	for _, method := range statement.Methods {
		if err := a.declareFunction(method, namespace, true); err != nil {
			return err
		}
	}
	return nil
}

// declareImplementation binds impl-block functions into the namespace of
// the named type.
func (a *Analyzer) declareImplementation(statement ast.ImplStmt) error {
	item, err := a.scope.Resolve(statement.Identifier)
	if err != nil {
		return withLocation(err, statement.Location)
	}
	if item.Namespace == nil {
		return errorAt(statement.Location, KindNotAType,
			"'%s' cannot have an impl block", statement.Identifier)
	}
	for _, function := range statement.Functions {
		if err := a.declareFunction(function, item.Namespace, false); err != nil {
			return err
		}
	}
	return nil
}

// declareModuleConstant evaluates a module-level `let` which must fold to a
// compile-time constant.
func (a *Analyzer) declareModuleConstant(statement ast.LetStmt) error {
	tree, err := buildTree(statement.Expression)
	if err != nil {
		return err
	}
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

	return a.scope.Declare(&Item{
		Variant:    ItemConstant,
		Location:   statement.Location,
		Identifier: statement.Identifier,
		Constant:   constant,
	})
}

// resolveType resolves a syntax-level type notation against the current
// scope.
func (a *Analyzer) resolveType(notation ast.Type) (Type, error) {
	switch notation.Variant {
	case ast.TypeUnit:
		return UnitType(), nil
	case ast.TypeBoolean:
		return BooleanType(), nil
	case ast.TypeField:
		return FieldScalar(), nil
	case ast.TypeIntegerUnsigned:
		return IntegerUnsigned(notation.Bitlength), nil
	case ast.TypeIntegerSigned:
		return IntegerSigned(notation.Bitlength), nil
	case ast.TypeSelf:
		if a.contract == nil {
			return Type{}, errorAt(notation.Location, KindNotAType,
				"'Self' is only allowed inside a contract")
		}
		return *a.contract, nil
	case ast.TypeArray:
		element, err := a.resolveType(*notation.Element)
		if err != nil {
			return Type{}, err
		}
		sizeTree, err := buildTree(*notation.Size)
		if err != nil {
			return Type{}, err
		}
		sizeConstant, err := a.evalConstNode(sizeTree)
		if err != nil {
			return Type{}, withLocation(err, notation.Location)
		}
		sizeInteger, ok := sizeConstant.(IntegerConstant)
		if !ok {
			return Type{}, errorAt(notation.Location, KindConstantExpected,
				"array size must be a constant integer")
		}
		size, err := sizeInteger.ToInt()
		if err != nil {
			return Type{}, withLocation(err, notation.Location)
		}
		return ArrayOf(element, size), nil
	case ast.TypeTuple:
		elements := make([]Type, len(notation.Elements))
		for i, element := range notation.Elements {
			resolved, err := a.resolveType(element)
			if err != nil {
				return Type{}, err
			}
			elements[i] = resolved
		}
		return TupleOf(elements), nil
	case ast.TypeReference:
		item, err := a.resolvePathExpression(*notation.Reference)
		if err != nil {
			return Type{}, withLocation(err, notation.Location)
		}
		if item.Variant != ItemType && item.Variant != ItemContract {
			return Type{}, errorAt(notation.Location, KindNotAType,
				"'%s' is a %s, not a type", item.Identifier, item.Variant)
		}
		return item.Type, nil
	}
	return Type{}, errorAt(notation.Location, KindNotAType, "unknown type notation")
}

// resolvePathExpression resolves an expression consisting solely of
// identifiers joined by the path operator to a scope item.
func (a *Analyzer) resolvePathExpression(expression ast.Expression) (*Item, error) {
	var item *Item
	for _, expressionElement := range expression.Elements {
		switch object := expressionElement.Object.(type) {
		case ast.Identifier:
			if item == nil {
				resolved, err := a.scope.Resolve(object.Name)
				if err != nil {
					return nil, withLocation(err, expressionElement.Location)
				}
				item = resolved
				continue
			}
			if item.Namespace == nil {
				return nil, errorAt(expressionElement.Location, KindUnresolvedIdentifier,
					"'%s' has no members", item.Identifier)
			}
			resolved, err := item.Namespace.ResolveLocal(object.Name)
			if err != nil {
				return nil, withLocation(err, expressionElement.Location)
			}
			item = resolved
		case ast.OperatorElement:
			if object.Operator != ast.OperatorPath {
				return nil, errorAt(expressionElement.Location, KindUnresolvedIdentifier,
					"expected a path of identifiers")
			}
		default:
			return nil, errorAt(expressionElement.Location, KindUnresolvedIdentifier,
				"expected a path of identifiers")
		}
	}
	if item == nil {
		return nil, errorf(KindUnresolvedIdentifier, "empty path")
	}
	return item, nil
}

// emitFunction generates the body of one hoisted function: arguments become
// the first data stack cells of the frame, the body result is left on the
// evaluation stack and returned.
func (a *Analyzer) emitFunction(pending functionBody) error {
	function := pending.function
	function.Address = a.builder.Address()

	a.builder.Function(function.Identifier)
	a.builder.Location(pending.location)

	previousScope := a.scope
	a.scope = NewScope(a.root)
	a.nextAddress = 0
	a.returnType = function.Return
	defer func() { a.scope = previousScope }()

	if pending.self != nil {
		if err := a.scope.Declare(&Item{
			Variant:    ItemContract,
			Identifier: "self",
			Type:       *pending.self,
			Mutable:    pending.mutates,
		}); err != nil {
			return err
		}
	}

	for _, argument := range function.Arguments {
		address := a.allocate(argument.Type.Size())
		if err := a.scope.Declare(&Item{
			Variant:    ItemVariable,
			Identifier: argument.Name,
			Type:       argument.Type,
			Mutable:    false,
			Address:    address,
		}); err != nil {
			return err
		}
	}

	result, err := a.evalBlock(pending.body)
	if err != nil {
		return err
	}
	resultType, err := a.materialize(&result)
	if err != nil {
		return withLocation(err, pending.location)
	}

	if !resultType.Equals(function.Return) {
		return errorAt(pending.location, KindTypesMismatch+"Return",
			"function '%s' returns '%s', but its body produces '%s'",
			function.Identifier, function.Return, resultType)
	}

	a.builder.Emit(bytecode.Return{OutputSize: resultType.Size()})
	return nil
}

// allocate reserves frame cells and returns their base address.
func (a *Analyzer) allocate(size int) int {
	address := a.nextAddress
	a.nextAddress += size
	return address
}

// patchCalls rewrites every recorded call site with the callee's final
// address.
func (a *Analyzer) patchCalls() {
	for function, sites := range a.patches {
		inputSize := 0
		for _, argument := range function.Arguments {
			inputSize += argument.Type.Size()
		}
		for _, site := range sites {
			a.builder.Patch(site, bytecode.Call{
				Address:   function.Address,
				InputSize: inputSize,
			})
		}
	}
}

// assemble produces the application artifact from the analyzed module.
func (a *Analyzer) assemble(name string) (*bytecode.Application, error) {
	application := &bytecode.Application{
		Name:         name,
		Instructions: a.builder.Instructions(),
	}

	if a.contract != nil {
		application.Kind = bytecode.KindContract
		application.Storage = a.contractFields
		for _, pending := range a.pending {
			if !pending.isMethod || !pending.isPublic {
				continue
			}
			application.Methods = append(application.Methods, a.methodEntry(pending))
		}
		if len(application.Methods) == 0 {
			return nil, errorf(KindMethodMissing,
				"contract '%s' declares no public methods", name)
		}
		return application, nil
	}

	for _, pending := range a.pending {
		if pending.function.Identifier == "main" {
			application.Kind = bytecode.KindCircuit
			application.Methods = append(application.Methods, a.methodEntry(pending))
			return application, nil
		}
	}

	application.Kind = bytecode.KindLibrary
	for _, pending := range a.pending {
		if pending.isPublic {
			application.Methods = append(application.Methods, a.methodEntry(pending))
		}
	}
	return application, nil
}

// methodEntry builds the metadata entry of a callable function: the input
// type is a structure of the named arguments, preserving order.
func (a *Analyzer) methodEntry(pending functionBody) bytecode.Method {
	function := pending.function
	inputFields := make([]bytecode.Field, len(function.Arguments))
	for i, argument := range function.Arguments {
		inputFields[i] = bytecode.Field{
			Name: argument.Name,
			Type: argument.Type.ToDataType(),
		}
	}
	return bytecode.Method{
		Name:       function.Identifier,
		Address:    function.Address,
		IsMutable:  pending.mutates,
		InputType:  bytecode.StructureType(inputFields),
		OutputType: function.Return.ToDataType(),
	}
}

// castConstant casts a folded constant to a declared type, used by `let`
// bindings with an explicit type.
func castConstant(constant Constant, declared Type) (Constant, error) {
	if constant.Type().Equals(declared) {
		return constant, nil
	}
	integer, ok := constant.(IntegerConstant)
	if !ok {
		return nil, errorf(KindFromInvalidType,
			"a constant of type '%s' cannot be cast to '%s'", constant.Type(), declared)
	}
	if !declared.IsInteger() || declared.Variant == VariantEnumeration {
		return nil, errorf(KindToInvalidType,
			"a constant integer cannot be cast to '%s'", declared)
	}
	// constants cast by value, so a narrowing that happens to fit is fine
	// and an out-of-range value is an overflow, not a data loss warning
	return integer.Cast(declared.IsSigned(), declared.Bitlength)
}

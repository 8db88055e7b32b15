// calls.go contains call analysis: user functions with address patching,
// the type-checked standard library builtins, and the `require` and `dbg`
// intrinsics.

package semantic

import (
	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/token"
)

// evalCall lowers a call expression. The callee is an identifier or a path;
// `require` and `dbg` are intrinsics that are not declared in any scope.
func (a *Analyzer) evalCall(node *exprNode) (element, error) {
	arguments, err := callArguments(node.right)
	if err != nil {
		return element{}, err
	}

	if identifier, ok := node.left.operand.(ast.Identifier); ok && !node.left.isOperator {
		switch identifier.Name {
		case "require":
			return a.evalRequire(arguments, node.location)
		case "dbg":
			return a.evalDbg(arguments, node.location)
		}
	}

	calleeElement, err := a.evalNode(node.left)
	if err != nil {
		return element{}, err
	}
	if calleeElement.item == nil || calleeElement.item.Variant != ItemFunction {
		return element{}, errorAt(node.left.location, KindNotAValue,
			"this expression is not callable")
	}
	function := calleeElement.item.Function

	if function.IsBuiltin {
		return a.evalBuiltinCall(function, arguments, node.location)
	}
	return a.evalUserCall(function, arguments, node.location)
}

// callArguments unwraps the argument list operand of a call.
func callArguments(node *exprNode) ([]ast.Expression, error) {
	list, ok := node.operand.(ast.ListOperand)
	if !ok {
		return nil, errorAt(node.location, KindInvalidPlace, "malformed call arguments")
	}
	return list.Expressions, nil
}

// emitArgument evaluates one argument. When the declared parameter type is
// known, untyped constants adapt to it; runtime arguments must match it
// exactly.
func (a *Analyzer) emitArgument(expression ast.Expression, declared *Type, at token.Location) (Type, error) {
	tree, err := buildTree(expression)
	if err != nil {
		return Type{}, err
	}
	if a.isConstNode(tree) {
		constant, err := a.evalConstNode(tree)
		if err != nil {
			return Type{}, err
		}
		if declared != nil {
			constant = adaptConstant(constant, *declared)
		}
		argumentType, err := a.pushConstant(constant)
		return argumentType, withLocation(err, at)
	}
	result, err := a.evalNode(tree)
	if err != nil {
		return Type{}, err
	}
	argumentType, err := a.materialize(&result)
	return argumentType, withLocation(err, at)
}

// evalUserCall lowers a call to a user function: arguments left-to-right,
// then the call, whose address is patched once every body is generated.
func (a *Analyzer) evalUserCall(function *FunctionType, arguments []ast.Expression, at token.Location) (element, error) {
	if len(arguments) != len(function.Arguments) {
		return element{}, errorAt(at, KindArgumentCount,
			"function '%s' expects %d arguments, found %d",
			function.Identifier, len(function.Arguments), len(arguments))
	}

	inputSize := 0
	for i, argument := range arguments {
		declared := function.Arguments[i].Type
		argumentType, err := a.emitArgument(argument, &declared, at)
		if err != nil {
			return element{}, err
		}
		if !argumentType.Equals(declared) {
			return element{}, errorAt(at, KindArgumentType,
				"argument '%s' of '%s' expects '%s', found '%s'",
				function.Arguments[i].Name, function.Identifier, declared, argumentType)
		}
		inputSize += declared.Size()
	}

	a.builder.Location(at)
	site := a.builder.Emit(bytecode.Call{Address: function.Address, InputSize: inputSize})
	a.patches[function] = append(a.patches[function], site)

	return valueElement(function.Return, at), nil
}

// evalBuiltinCall lowers a standard library call: arguments left-to-right,
// then the library dispatch.
func (a *Analyzer) evalBuiltinCall(function *FunctionType, arguments []ast.Expression, at token.Location) (element, error) {
	argumentTypes := make([]Type, len(arguments))
	inputSize := 0
	for i, argument := range arguments {
		argumentType, err := a.emitArgument(argument, nil, at)
		if err != nil {
			return element{}, err
		}
		argumentTypes[i] = argumentType
		inputSize += argumentType.Size()
	}

	returnType, err := BuiltinReturnType(function, argumentTypes)
	if err != nil {
		return element{}, withLocation(err, at)
	}

	a.builder.Location(at)
	a.builder.Emit(bytecode.CallLibrary{
		Identifier: function.Builtin,
		InputSize:  inputSize,
		OutputSize: returnType.Size(),
	})
	return valueElement(returnType, at), nil
}

// evalRequire lowers the `require(condition, [message])` intrinsic.
func (a *Analyzer) evalRequire(arguments []ast.Expression, at token.Location) (element, error) {
	if len(arguments) < 1 || len(arguments) > 2 {
		return element{}, errorAt(at, KindArgumentCount,
			"'require' expects 1 or 2 arguments, found %d", len(arguments))
	}

	message := at.String()
	if len(arguments) == 2 {
		tree, err := buildTree(arguments[1])
		if err != nil {
			return element{}, err
		}
		constant, err := a.evalConstNode(tree)
		if err != nil {
			return element{}, err
		}
		text, ok := constant.(StringConstant)
		if !ok {
			return element{}, errorAt(at, KindArgumentType,
				"the 'require' message must be a string literal")
		}
		message = text.Value
	}

	conditionType, err := a.emitArgument(arguments[0], nil, at)
	if err != nil {
		return element{}, err
	}
	if conditionType.Variant != VariantBoolean {
		return element{}, errorAt(at, KindArgumentType,
			"'require' expects a boolean condition, found '%s'", conditionType)
	}

	a.builder.Location(at)
	a.builder.Emit(bytecode.Require{Message: message})
	return constantElement(UnitConstant{}, at), nil
}

// evalDbg lowers the `dbg(format, args...)` intrinsic.
func (a *Analyzer) evalDbg(arguments []ast.Expression, at token.Location) (element, error) {
	if len(arguments) < 1 {
		return element{}, errorAt(at, KindArgumentCount,
			"'dbg' expects at least a format string")
	}

	tree, err := buildTree(arguments[0])
	if err != nil {
		return element{}, err
	}
	constant, err := a.evalConstNode(tree)
	if err != nil {
		return element{}, err
	}
	format, ok := constant.(StringConstant)
	if !ok {
		return element{}, errorAt(at, KindArgumentType,
			"the 'dbg' format must be a string literal")
	}

	argumentTypes := make([]bytecode.ScalarType, 0, len(arguments)-1)
	for _, argument := range arguments[1:] {
		argumentType, err := a.emitArgument(argument, nil, at)
		if err != nil {
			return element{}, err
		}
		if !argumentType.IsScalar() {
			return element{}, errorAt(at, KindArgumentType,
				"'dbg' arguments must be scalars, found '%s'", argumentType)
		}
		argumentTypes = append(argumentTypes, argumentType.ScalarType())
	}

	a.builder.Location(at)
	a.builder.Emit(bytecode.Dbg{Format: format.Value, ArgTypes: argumentTypes})
	return constantElement(UnitConstant{}, at), nil
}

// stdlib.go contains the type-checked standard library builtins. Each
// builtin is declared in the `std` or `zksync` module namespace and lowers
// to a CallLibrary instruction.

package semantic

import (
	"github.com/ReggieRumsfeld/zinc/bytecode"
)

// newBuiltin wraps a library routine into a function item.
func newBuiltin(identifier string, builtin bytecode.LibraryFunctionIdentifier) *Item {
	return &Item{
		Variant:    ItemFunction,
		Identifier: identifier,
		Function: &FunctionType{
			Identifier: identifier,
			IsBuiltin:  true,
			Builtin:    builtin,
		},
	}
}

// declareStdlib binds the `std` and `zksync` module trees into the root
// scope.
func declareStdlib(root *Scope) {
	convert := NewScope(nil)
	_ = convert.Declare(newBuiltin("from_bits_unsigned", bytecode.LibraryFromBitsUnsigned))
	_ = convert.Declare(newBuiltin("from_bits_signed", bytecode.LibraryFromBitsSigned))
	_ = convert.Declare(newBuiltin("to_bits", bytecode.LibraryToBits))

	std := NewScope(nil)
	_ = std.Declare(&Item{
		Variant:    ItemModule,
		Identifier: "convert",
		Namespace:  convert,
	})

	zksync := NewScope(nil)
	_ = zksync.Declare(newBuiltin("transfer", bytecode.LibraryTransfer))

	_ = root.Declare(&Item{Variant: ItemModule, Identifier: "std", Namespace: std})
	_ = root.Declare(&Item{Variant: ItemModule, Identifier: "zksync", Namespace: zksync})
}

// validateBitsArgument checks the `[bool; N]` argument shape shared by the
// bit conversion builtins: 8 <= N <= 248 and N divisible by 8.
func validateBitsArgument(function string, argument Type) (int, error) {
	if argument.Variant != VariantArray || argument.Element.Variant != VariantBoolean {
		return 0, errorf(KindArgumentType,
			"'%s' expects 'bits' to be '[bool; N]', found '%s'", function, argument)
	}
	size := argument.ArraySize
	if size < BitlengthByte || size > BitlengthMaxInt || size%BitlengthByte != 0 {
		return 0, errorf(KindArgumentType,
			"'%s' expects '[bool; N]' with %d <= N <= %d and N %% %d == 0, found N = %d",
			function, BitlengthByte, BitlengthMaxInt, BitlengthByte, size)
	}
	return size, nil
}

// BuiltinReturnType type checks a builtin call and returns its result type.
func BuiltinReturnType(function *FunctionType, arguments []Type) (Type, error) {
	switch function.Builtin {
	case bytecode.LibraryFromBitsUnsigned, bytecode.LibraryFromBitsSigned:
		if len(arguments) != 1 {
			return Type{}, errorf(KindArgumentCount,
				"'%s' expects 1 argument, found %d", function.Identifier, len(arguments))
		}
		size, err := validateBitsArgument(function.Identifier, arguments[0])
		if err != nil {
			return Type{}, err
		}
		if function.Builtin == bytecode.LibraryFromBitsSigned {
			return IntegerSigned(size), nil
		}
		return IntegerUnsigned(size), nil

	case bytecode.LibraryToBits:
		if len(arguments) != 1 {
			return Type{}, errorf(KindArgumentCount,
				"'%s' expects 1 argument, found %d", function.Identifier, len(arguments))
		}
		scalar := arguments[0]
		if !scalar.IsInteger() || scalar.IsField() {
			return Type{}, errorf(KindArgumentType,
				"'%s' expects a ranged integer argument, found '%s'", function.Identifier, scalar)
		}
		return ArrayOf(BooleanType(), scalar.Bitlength), nil

	case bytecode.LibraryTransfer:
		if len(arguments) != 3 {
			return Type{}, errorf(KindArgumentCount,
				"'%s' expects 3 arguments, found %d", function.Identifier, len(arguments))
		}
		names := []string{"recipient", "token_id", "amount"}
		for i, argument := range arguments {
			if !argument.IsInteger() || argument.IsSigned() && !argument.IsField() {
				return Type{}, errorf(KindArgumentType,
					"'%s' expects '%s' to be an unsigned integer, found '%s'",
					function.Identifier, names[i], argument)
			}
		}
		return UnitType(), nil
	}

	return Type{}, errorf(KindUnresolvedIdentifier,
		"unknown builtin function '%s'", function.Identifier)
}

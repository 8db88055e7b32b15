// types.go contains the semantic type model: a tagged variant with
// capability queries instead of a type hierarchy. Two named types are equal
// only when their identifiers match; in particular two enumerations with the
// same representation are never interchangeable.

package semantic

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ReggieRumsfeld/zinc/bytecode"
)

const (
	// BitlengthByte is the granularity of integer bitlengths.
	BitlengthByte = 8
	// BitlengthMaxInt is the largest ordinary integer bitlength.
	BitlengthMaxInt = 248
	// BitlengthField is the bitlength of the BN256 scalar field.
	BitlengthField = 254
)

// Variant discriminates the semantic type forms.
type Variant int

const (
	VariantUnit Variant = iota
	VariantBoolean
	VariantIntegerUnsigned
	VariantIntegerSigned
	VariantField
	VariantString
	VariantRange
	VariantArray
	VariantTuple
	VariantStructure
	VariantEnumeration
	VariantFunction
	VariantContract
)

// StructureField is one named, ordered member of a structure, contract
// storage or function argument list.
type StructureField struct {
	Name string
	Type Type
}

// EnumVariantValue is one enumeration variant with its constant value.
type EnumVariantValue struct {
	Name  string
	Value *big.Int
}

// FunctionType describes a callable: a user function with a bytecode
// address, or a standard library builtin identified by its library routine.
type FunctionType struct {
	Identifier string
	IsBuiltin  bool
	Builtin    bytecode.LibraryFunctionIdentifier
	Arguments  []StructureField
	Return     Type

	// Address is the function's entry offset, assigned during generation.
	Address int
}

// Type is the semantic type: a tagged variant plus the payload of the
// active variant.
type Type struct {
	Variant Variant

	// Bitlength is set for the integer variants and enumerations.
	Bitlength int

	// Element and ArraySize are set for arrays.
	Element   *Type
	ArraySize int

	// Elements is set for tuples.
	Elements []Type

	// Identifier names structures, enumerations and contracts; it is part
	// of type identity.
	Identifier string

	// Fields is set for structures and contract storage.
	Fields []StructureField

	// EnumVariants is set for enumerations.
	EnumVariants []EnumVariantValue

	// Function is set for the function variant.
	Function *FunctionType
}

// UnitType returns the unit type.
func UnitType() Type {
	return Type{Variant: VariantUnit}
}

// BooleanType returns the boolean type.
func BooleanType() Type {
	return Type{Variant: VariantBoolean}
}

// IntegerUnsigned returns the unsigned integer type of the bitlength.
func IntegerUnsigned(bitlength int) Type {
	return Type{Variant: VariantIntegerUnsigned, Bitlength: bitlength}
}

// IntegerSigned returns the signed integer type of the bitlength.
func IntegerSigned(bitlength int) Type {
	return Type{Variant: VariantIntegerSigned, Bitlength: bitlength}
}

// FieldScalar returns the BN256 field type.
func FieldScalar() Type {
	return Type{Variant: VariantField, Bitlength: BitlengthField}
}

// ScalarInteger returns the integer type for a signedness and bitlength,
// mapping the field bitlength onto the field type.
func ScalarInteger(isSigned bool, bitlength int) Type {
	if bitlength == BitlengthField {
		return FieldScalar()
	}
	if isSigned {
		return IntegerSigned(bitlength)
	}
	return IntegerUnsigned(bitlength)
}

// ArrayOf returns the `[element; size]` type.
func ArrayOf(element Type, size int) Type {
	return Type{Variant: VariantArray, Element: &element, ArraySize: size}
}

// TupleOf returns the tuple type of the elements.
func TupleOf(elements []Type) Type {
	if len(elements) == 0 {
		return UnitType()
	}
	return Type{Variant: VariantTuple, Elements: elements}
}

// IsInteger reports whether the type is an ordinary ranged integer, an
// enumeration or the field.
func (t Type) IsInteger() bool {
	switch t.Variant {
	case VariantIntegerUnsigned, VariantIntegerSigned, VariantField, VariantEnumeration:
		return true
	}
	return false
}

// IsSigned reports the signedness of integer types. The field counts as
// signed for inference purposes.
func (t Type) IsSigned() bool {
	switch t.Variant {
	case VariantIntegerSigned, VariantField:
		return true
	}
	return false
}

// IsField reports whether the type is the raw BN256 field.
func (t Type) IsField() bool {
	return t.Variant == VariantField
}

// IsScalar reports whether the type occupies exactly one stack cell.
func (t Type) IsScalar() bool {
	switch t.Variant {
	case VariantBoolean, VariantIntegerUnsigned, VariantIntegerSigned, VariantField, VariantEnumeration:
		return true
	}
	return false
}

// Size returns the number of stack cells a value of this type occupies.
func (t Type) Size() int {
	switch t.Variant {
	case VariantUnit, VariantString, VariantRange, VariantFunction:
		return 0
	case VariantBoolean, VariantIntegerUnsigned, VariantIntegerSigned, VariantField, VariantEnumeration:
		return 1
	case VariantArray:
		return t.Element.Size() * t.ArraySize
	case VariantTuple:
		total := 0
		for _, element := range t.Elements {
			total += element.Size()
		}
		return total
	case VariantStructure, VariantContract:
		total := 0
		for _, field := range t.Fields {
			total += field.Type.Size()
		}
		return total
	}
	return 0
}

// Equals reports structural type equality. Named types compare by
// identifier, which keeps enumerations with identical representation
// distinct.
func (t Type) Equals(other Type) bool {
	if t.Variant != other.Variant {
		return false
	}
	switch t.Variant {
	case VariantUnit, VariantBoolean, VariantField, VariantString:
		return true
	case VariantIntegerUnsigned, VariantIntegerSigned:
		return t.Bitlength == other.Bitlength
	case VariantArray:
		return t.ArraySize == other.ArraySize && t.Element.Equals(*other.Element)
	case VariantTuple:
		if len(t.Elements) != len(other.Elements) {
			return false
		}
		for i := range t.Elements {
			if !t.Elements[i].Equals(other.Elements[i]) {
				return false
			}
		}
		return true
	case VariantStructure, VariantEnumeration, VariantContract:
		return t.Identifier == other.Identifier
	case VariantRange:
		return true
	}
	return false
}

// ScalarType converts a single-cell type to its bytecode scalar descriptor.
func (t Type) ScalarType() bytecode.ScalarType {
	switch t.Variant {
	case VariantBoolean:
		return bytecode.BooleanType()
	case VariantField:
		return bytecode.FieldType()
	case VariantIntegerSigned:
		return bytecode.IntegerType(true, t.Bitlength)
	default:
		return bytecode.IntegerType(false, t.Bitlength)
	}
}

// ToDataType converts the semantic type to the serializable data type used
// in metadata, input/output JSON and storage schemas.
func (t Type) ToDataType() bytecode.Type {
	switch t.Variant {
	case VariantUnit:
		return bytecode.UnitType()
	case VariantBoolean, VariantIntegerUnsigned, VariantIntegerSigned, VariantField:
		return bytecode.ScalarDataType(t.ScalarType())
	case VariantEnumeration:
		values := make([]*big.Int, len(t.EnumVariants))
		for i, variant := range t.EnumVariants {
			values[i] = variant.Value
		}
		return bytecode.EnumerationType(t.Bitlength, values)
	case VariantArray:
		return bytecode.ArrayType(t.Element.ToDataType(), t.ArraySize)
	case VariantTuple:
		elements := make([]bytecode.Type, len(t.Elements))
		for i, element := range t.Elements {
			elements[i] = element.ToDataType()
		}
		return bytecode.TupleType(elements)
	case VariantStructure, VariantContract:
		fields := make([]bytecode.Field, len(t.Fields))
		for i, field := range t.Fields {
			fields[i] = bytecode.Field{Name: field.Name, Type: field.Type.ToDataType()}
		}
		return bytecode.StructureType(fields)
	}
	return bytecode.UnitType()
}

// Field finds a structure or contract field by name and returns it together
// with the cell offset of the field within the flattened value.
func (t Type) Field(name string) (StructureField, int, bool) {
	offset := 0
	for _, field := range t.Fields {
		if field.Name == name {
			return field, offset, true
		}
		offset += field.Type.Size()
	}
	return StructureField{}, 0, false
}

func (t Type) String() string {
	switch t.Variant {
	case VariantUnit:
		return "()"
	case VariantBoolean:
		return "bool"
	case VariantIntegerUnsigned:
		return fmt.Sprintf("u%d", t.Bitlength)
	case VariantIntegerSigned:
		return fmt.Sprintf("i%d", t.Bitlength)
	case VariantField:
		return "field"
	case VariantString:
		return "str"
	case VariantRange:
		return "range"
	case VariantArray:
		return fmt.Sprintf("[%s; %d]", t.Element, t.ArraySize)
	case VariantTuple:
		names := make([]string, len(t.Elements))
		for i, element := range t.Elements {
			names[i] = element.String()
		}
		return "(" + strings.Join(names, ", ") + ")"
	case VariantStructure:
		return fmt.Sprintf("struct %s", t.Identifier)
	case VariantEnumeration:
		return fmt.Sprintf("enum %s", t.Identifier)
	case VariantFunction:
		return fmt.Sprintf("fn %s", t.Function.Identifier)
	case VariantContract:
		return fmt.Sprintf("contract %s", t.Identifier)
	}
	return "unknown"
}

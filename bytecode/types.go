// types.go contains the serializable data type model shared by the
// compiler's metadata output, the input/output JSON codec and the VM.

package bytecode

import (
	"fmt"
	"math/big"
)

const (
	// BitlengthByte is the granularity of integer bitlengths.
	BitlengthByte = 8
	// BitlengthMaxInt is the largest ordinary integer bitlength.
	BitlengthMaxInt = 248
	// BitlengthField is the bitlength of the BN256 scalar field.
	BitlengthField = 254
)

// ScalarVariant discriminates the scalar type forms.
type ScalarVariant string

const (
	ScalarBoolean ScalarVariant = "bool"
	ScalarInteger ScalarVariant = "int"
	ScalarField   ScalarVariant = "field"
)

// ScalarType describes a single stack cell: a boolean, a ranged integer or
// a raw field element.
type ScalarType struct {
	Variant   ScalarVariant `json:"variant"`
	IsSigned  bool          `json:"is_signed,omitempty"`
	Bitlength int           `json:"bitlength,omitempty"`
}

// BooleanType returns the boolean scalar type.
func BooleanType() ScalarType {
	return ScalarType{Variant: ScalarBoolean, Bitlength: 1}
}

// IntegerType returns a ranged integer scalar type.
func IntegerType(isSigned bool, bitlength int) ScalarType {
	return ScalarType{Variant: ScalarInteger, IsSigned: isSigned, Bitlength: bitlength}
}

// FieldType returns the raw field scalar type.
func FieldType() ScalarType {
	return ScalarType{Variant: ScalarField, IsSigned: false, Bitlength: BitlengthField}
}

// IsField reports whether the scalar is a raw field element, which bypasses
// range-check gadgets.
func (t ScalarType) IsField() bool {
	return t.Variant == ScalarField
}

func (t ScalarType) String() string {
	switch t.Variant {
	case ScalarBoolean:
		return "bool"
	case ScalarField:
		return "field"
	default:
		if t.IsSigned {
			return fmt.Sprintf("i%d", t.Bitlength)
		}
		return fmt.Sprintf("u%d", t.Bitlength)
	}
}

// TypeVariant discriminates the composite data type forms.
type TypeVariant string

const (
	TypeUnit        TypeVariant = "unit"
	TypeScalar      TypeVariant = "scalar"
	TypeEnumeration TypeVariant = "enum"
	TypeArray       TypeVariant = "array"
	TypeTuple       TypeVariant = "tuple"
	TypeStructure   TypeVariant = "struct"
)

// Field is one named field of a structure type. Order is significant: it is
// the declaration order, the JSON key order and the flattening order.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Type is the serializable data type: the shape of method inputs, outputs
// and contract storage fields.
type Type struct {
	Variant TypeVariant `json:"variant"`

	// Scalar is set for TypeScalar and TypeEnumeration.
	Scalar ScalarType `json:"scalar,omitempty"`

	// Variants holds the allowed values of an enumeration.
	Variants []string `json:"variants,omitempty"`

	// Element and Size are set for TypeArray.
	Element *Type `json:"element,omitempty"`
	Size    int   `json:"size,omitempty"`

	// Elements is set for TypeTuple.
	Elements []Type `json:"elements,omitempty"`

	// Fields is set for TypeStructure.
	Fields []Field `json:"fields,omitempty"`
}

// UnitType returns the unit data type.
func UnitType() Type {
	return Type{Variant: TypeUnit}
}

// ScalarDataType wraps a scalar type into a data type.
func ScalarDataType(scalar ScalarType) Type {
	return Type{Variant: TypeScalar, Scalar: scalar}
}

// EnumerationType returns the data type of an enumeration with the given
// allowed values, each rendered in decimal.
func EnumerationType(bitlength int, variants []*big.Int) Type {
	values := make([]string, len(variants))
	for i, variant := range variants {
		values[i] = variant.String()
	}
	return Type{
		Variant:  TypeEnumeration,
		Scalar:   IntegerType(false, bitlength),
		Variants: values,
	}
}

// ArrayType returns the data type of `[element; size]`.
func ArrayType(element Type, size int) Type {
	return Type{Variant: TypeArray, Element: &element, Size: size}
}

// TupleType returns the data type of a tuple.
func TupleType(elements []Type) Type {
	return Type{Variant: TypeTuple, Elements: elements}
}

// StructureType returns the data type of a structure with ordered fields.
func StructureType(fields []Field) Type {
	return Type{Variant: TypeStructure, Fields: fields}
}

// SizeInCells returns the number of scalar stack cells a value of this type
// occupies when flattened.
func (t Type) SizeInCells() int {
	switch t.Variant {
	case TypeUnit:
		return 0
	case TypeScalar, TypeEnumeration:
		return 1
	case TypeArray:
		return t.Element.SizeInCells() * t.Size
	case TypeTuple:
		total := 0
		for _, element := range t.Elements {
			total += element.SizeInCells()
		}
		return total
	case TypeStructure:
		total := 0
		for _, field := range t.Fields {
			total += field.Type.SizeInCells()
		}
		return total
	}
	return 0
}

// ScalarTypes returns the scalar type of every cell of the flattened value,
// in flattening order.
func (t Type) ScalarTypes() []ScalarType {
	switch t.Variant {
	case TypeUnit:
		return nil
	case TypeScalar, TypeEnumeration:
		return []ScalarType{t.Scalar}
	case TypeArray:
		element := t.Element.ScalarTypes()
		result := make([]ScalarType, 0, len(element)*t.Size)
		for i := 0; i < t.Size; i++ {
			result = append(result, element...)
		}
		return result
	case TypeTuple:
		result := []ScalarType{}
		for _, element := range t.Elements {
			result = append(result, element.ScalarTypes()...)
		}
		return result
	case TypeStructure:
		result := []ScalarType{}
		for _, field := range t.Fields {
			result = append(result, field.Type.ScalarTypes()...)
		}
		return result
	}
	return nil
}

func (t Type) String() string {
	switch t.Variant {
	case TypeUnit:
		return "()"
	case TypeScalar:
		return t.Scalar.String()
	case TypeEnumeration:
		return fmt.Sprintf("enum as %s", t.Scalar)
	case TypeArray:
		return fmt.Sprintf("[%s; %d]", t.Element, t.Size)
	case TypeTuple:
		return fmt.Sprintf("tuple of %d", len(t.Elements))
	case TypeStructure:
		return fmt.Sprintf("struct of %d fields", len(t.Fields))
	}
	return "unknown"
}

// types.go contains the syntax-level type notation. These nodes record what
// the programmer wrote; resolution to semantic types happens later, against
// the scope tree.

package ast

import (
	"github.com/ReggieRumsfeld/zinc/token"
)

// TypeVariant discriminates the syntactic type forms.
type TypeVariant int

const (
	TypeUnit TypeVariant = iota
	TypeBoolean
	TypeIntegerUnsigned
	TypeIntegerSigned
	TypeField
	TypeArray
	TypeTuple
	// TypeReference is a named type: a path of identifiers resolved in the
	// scope tree (a struct, enum, contract or type alias).
	TypeReference
	// TypeSelf is the `Self` keyword inside an impl or contract block.
	TypeSelf
)

// Type is a type as written in the source.
//
// Fields:
//   - Bitlength: set for integer variants.
//   - Element/Size: set for arrays; the size is a constant expression.
//   - Elements: set for tuples.
//   - Reference: set for named types.
type Type struct {
	Location  token.Location
	Variant   TypeVariant
	Bitlength int
	Element   *Type
	Size      *Expression
	Elements  []Type
	Reference *Expression
}

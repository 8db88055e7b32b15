// place.go contains the l-value model: a root binding plus the statically
// resolved selector offsets, or a contract storage field. A place with a
// runtime index keeps the aggregate geometry so the generator can emit the
// indexed load/store forms.

package semantic

import (
	"github.com/ReggieRumsfeld/zinc/token"
)

// Place is an assignable location: the root identifier and the selectors
// applied so far, reduced to a static cell offset whenever possible.
type Place struct {
	Location   token.Location
	Identifier string

	// Type is the type at the current selector depth.
	Type Type

	// Mutable reports whether assignment through the place is allowed.
	Mutable bool

	// Address is the frame-relative base of the root binding plus every
	// statically resolved selector offset.
	Address int

	// IsStorage marks contract storage fields; StorageIndex is the declared
	// field position and StorageSize the whole field's cell count. For
	// storage places Address is the static offset inside the field.
	IsStorage    bool
	StorageIndex int
	StorageSize  int

	// Indexed marks a place whose last selector is a runtime index.
	// TotalSize and ElementSize describe the indexed aggregate; the index
	// value is left on the evaluation stack by the analyzer.
	Indexed     bool
	TotalSize   int
	ElementSize int
}

// SelectField narrows the place to a structure field, folding the field's
// cell offset into the static address.
func (place Place) SelectField(name string) (Place, error) {
	if place.Type.Variant != VariantStructure && place.Type.Variant != VariantContract {
		return Place{}, errorf(KindInvalidPlace,
			"'%s' of type '%s' has no fields", place.Identifier, place.Type)
	}
	field, offset, found := place.Type.Field(name)
	if !found {
		return Place{}, errorf(KindUnresolvedIdentifier,
			"field '%s' does not exist in '%s'", name, place.Type)
	}
	if place.Indexed {
		return Place{}, errorf(KindInvalidPlace,
			"cannot select a field after a runtime index")
	}
	place.Type = field.Type
	place.Address += offset
	return place, nil
}

// SelectTupleField narrows the place to a tuple element by position.
func (place Place) SelectTupleField(index int) (Place, error) {
	if place.Type.Variant != VariantTuple {
		return Place{}, errorf(KindInvalidPlace,
			"'%s' of type '%s' is not a tuple", place.Identifier, place.Type)
	}
	if index < 0 || index >= len(place.Type.Elements) {
		return Place{}, errorf(KindInvalidPlace,
			"tuple index %d is out of bounds of '%s'", index, place.Type)
	}
	if place.Indexed {
		return Place{}, errorf(KindInvalidPlace,
			"cannot select an element after a runtime index")
	}
	offset := 0
	for i := 0; i < index; i++ {
		offset += place.Type.Elements[i].Size()
	}
	place.Address += offset
	place.Type = place.Type.Elements[index]
	return place, nil
}

// SelectConstantIndex narrows the place to an array element at a
// compile-time index, folding the offset statically.
func (place Place) SelectConstantIndex(index int) (Place, error) {
	if place.Type.Variant != VariantArray {
		return Place{}, errorf(KindInvalidPlace,
			"'%s' of type '%s' is not an array", place.Identifier, place.Type)
	}
	if index < 0 || index >= place.Type.ArraySize {
		return Place{}, errorf(KindInvalidPlace,
			"index %d is out of bounds of '%s'", index, place.Type)
	}
	if place.Indexed {
		return Place{}, errorf(KindInvalidPlace,
			"cannot select an element after a runtime index")
	}
	place.Address += index * place.Type.Element.Size()
	place.Type = *place.Type.Element
	return place, nil
}

// SelectRuntimeIndex narrows the place to an array element whose index is
// only known at run time. The analyzer leaves the index value on the
// evaluation stack; the place records the aggregate geometry for the
// indexed load and store instructions.
func (place Place) SelectRuntimeIndex() (Place, error) {
	if place.Type.Variant != VariantArray {
		return Place{}, errorf(KindInvalidPlace,
			"'%s' of type '%s' is not an array", place.Identifier, place.Type)
	}
	if place.Indexed {
		return Place{}, errorf(KindInvalidPlace,
			"only one runtime index is supported per access")
	}
	place.Indexed = true
	place.TotalSize = place.Type.Size()
	place.ElementSize = place.Type.Element.Size()
	place.Type = *place.Type.Element
	return place, nil
}

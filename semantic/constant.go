// constant.go contains the compile-time constant model. Constants mirror
// the type variants; integer constants carry arbitrary-precision values so
// overflow is always detected exactly.

package semantic

import (
	"fmt"
	"math/big"
)

// Constant is a compile-time-known value.
type Constant interface {
	Type() Type
	isConstant()
}

// UnitConstant is the unit value.
type UnitConstant struct{}

func (UnitConstant) Type() Type  { return UnitType() }
func (UnitConstant) isConstant() {}

// BooleanConstant is a compile-time boolean.
type BooleanConstant struct {
	Value bool
}

func (BooleanConstant) Type() Type  { return BooleanType() }
func (BooleanConstant) isConstant() {}

func (c BooleanConstant) String() string {
	return fmt.Sprintf("%v", c.Value)
}

// StringConstant is a compile-time string. Strings never reach the stack;
// they only appear as require messages and debug formats.
type StringConstant struct {
	Value string
}

func (StringConstant) Type() Type  { return Type{Variant: VariantString} }
func (StringConstant) isConstant() {}

// IntegerConstant is a compile-time integer: the value, sign and bitlength.
// If the constant belongs to an enumeration, the enumeration type is stored
// in Enumeration; it uniquely defines the constant's type even when the
// sign and bitlength are the same.
type IntegerConstant struct {
	Value       *big.Int
	IsSigned    bool
	Bitlength   int
	Enumeration *Type
}

func (c IntegerConstant) Type() Type {
	if c.Enumeration != nil {
		return *c.Enumeration
	}
	return ScalarInteger(c.IsSigned, c.Bitlength)
}

func (IntegerConstant) isConstant() {}

func (c IntegerConstant) String() string {
	return fmt.Sprintf("constant integer '%s' of type '%s'", c.Value, c.Type())
}

// RangeConstant is a compile-time loop bound: `start..end` or
// `start..=end`.
type RangeConstant struct {
	Start       *big.Int
	End         *big.Int
	IsSigned    bool
	Bitlength   int
	IsInclusive bool
}

func (c RangeConstant) Type() Type { return Type{Variant: VariantRange} }

func (RangeConstant) isConstant() {}

// Iterations returns the number of loop iterations the range describes.
// An empty or backwards range iterates zero times.
func (c RangeConstant) Iterations() int {
	distance := new(big.Int).Sub(c.End, c.Start)
	if c.IsInclusive {
		distance.Add(distance, big.NewInt(1))
	}
	if distance.Sign() <= 0 {
		return 0
	}
	return int(distance.Int64())
}

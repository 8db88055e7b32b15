// scalar.go contains the symbolic field element the VM computes with: an
// allocated wire, its optional concrete witness and the scalar type driving
// range checks and signedness.

package vm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/ReggieRumsfeld/zinc/bytecode"
)

// Scalar is one evaluation stack cell: a wire of the constraint system,
// the concrete witness when it exists and the scalar type.
type Scalar struct {
	Variable Variable
	Value    *fr.Element
	Type     bytecode.ScalarType
}

// Cell aliases Scalar; the evaluation and data stacks store cells.
type Cell = Scalar

// HasValue reports whether the scalar carries a concrete witness.
func (s Scalar) HasValue() bool {
	return s.Value != nil
}

// LC returns the scalar as a single-term linear combination.
func (s Scalar) LC() LinearCombination {
	return NewLC(s.Variable)
}

// witness returns the value callback for allocating wires derived from
// this scalar.
func (s Scalar) witness() func() (fr.Element, error) {
	if s.Value == nil {
		return UnknownWitness
	}
	value := *s.Value
	return func() (fr.Element, error) { return value, nil }
}

func (s Scalar) String() string {
	if s.Value == nil {
		return fmt.Sprintf("<unknown>: %s", s.Type)
	}
	return fmt.Sprintf("%s: %s", s.Value.String(), s.Type)
}

// fieldFromBigInt reduces an arbitrary-precision integer into the field,
// mapping negatives onto p - |v|.
func fieldFromBigInt(value *big.Int) fr.Element {
	var element fr.Element
	reduced := new(big.Int).Mod(value, fr.Modulus())
	element.SetBigInt(reduced)
	return element
}

// bigIntFromField lifts a field element back to an arbitrary-precision
// integer under the scalar type's signedness: signed values in the upper
// half of the field are negative.
func bigIntFromField(value fr.Element, scalarType bytecode.ScalarType) *big.Int {
	result := new(big.Int)
	value.BigInt(result)
	if scalarType.IsSigned {
		half := new(big.Int).Rsh(fr.Modulus(), 1)
		if result.Cmp(half) > 0 {
			result.Sub(result, fr.Modulus())
		}
	}
	return result
}

// BigInt returns the concrete witness as an arbitrary-precision integer,
// or nil when unknown.
func (s Scalar) BigInt() *big.Int {
	if s.Value == nil {
		return nil
	}
	return bigIntFromField(*s.Value, s.Type)
}

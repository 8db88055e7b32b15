// constraint.go contains the constraint system abstraction the VM runs
// over, and the test implementation that counts gates and checks
// satisfaction against a concrete witness. The same VM runs unchanged
// against a proving implementation; key generation plugs in behind this
// seam.

package vm

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Variable is an allocated wire of the constraint system.
type Variable int

// One is the constant-one wire every system provides at index zero.
const One Variable = 0

// Term is one `coefficient * variable` summand.
type Term struct {
	Coefficient fr.Element
	Variable    Variable
}

// LinearCombination is a sum of terms.
type LinearCombination []Term

// NewLC builds a linear combination of a single variable with
// coefficient one.
func NewLC(variable Variable) LinearCombination {
	var one fr.Element
	one.SetOne()
	return LinearCombination{{Coefficient: one, Variable: variable}}
}

// ConstantLC builds a linear combination of the constant wire scaled by a
// value.
func ConstantLC(value fr.Element) LinearCombination {
	return LinearCombination{{Coefficient: value, Variable: One}}
}

// Add returns lc + other.
func (lc LinearCombination) Add(other LinearCombination) LinearCombination {
	result := make(LinearCombination, 0, len(lc)+len(other))
	result = append(result, lc...)
	result = append(result, other...)
	return result
}

// Sub returns lc - other.
func (lc LinearCombination) Sub(other LinearCombination) LinearCombination {
	result := make(LinearCombination, 0, len(lc)+len(other))
	result = append(result, lc...)
	for _, term := range other {
		var negated fr.Element
		negated.Neg(&term.Coefficient)
		result = append(result, Term{Coefficient: negated, Variable: term.Variable})
	}
	return result
}

// Scale returns lc multiplied by a scalar coefficient.
func (lc LinearCombination) Scale(factor fr.Element) LinearCombination {
	result := make(LinearCombination, len(lc))
	for i, term := range lc {
		var scaled fr.Element
		scaled.Mul(&term.Coefficient, &factor)
		result[i] = Term{Coefficient: scaled, Variable: term.Variable}
	}
	return result
}

// ConstraintSystem is the capability the VM needs from a proving backend:
// allocation of witness and public input wires, rank-1 constraint
// enforcement `a * b = c`, and namespacing for debuggable gate names.
// Dispatch is static per run; the constraint order is exactly the VM's
// emission order.
type ConstraintSystem interface {
	// Alloc allocates a witness wire. The value callback may report that
	// the witness is unknown (proving-key generation mode).
	Alloc(name string, value func() (fr.Element, error)) (Variable, error)

	// AllocInput allocates a public input wire.
	AllocInput(name string, value func() (fr.Element, error)) (Variable, error)

	// Enforce adds the constraint a * b = c.
	Enforce(name string, a, b, c LinearCombination)

	// PushNamespace and PopNamespace scope gate names.
	PushNamespace(name string)
	PopNamespace()
}

// errUnknownWitness is returned by value callbacks when no concrete
// witness exists.
var errUnknownWitness = fmt.Errorf("witness value is unknown")

// UnknownWitness is a value callback for wires without a concrete witness.
func UnknownWitness() (fr.Element, error) {
	return fr.Element{}, errUnknownWitness
}

// constraint is one recorded rank-1 gate.
type constraint struct {
	name string
	a    LinearCombination
	b    LinearCombination
	c    LinearCombination
}

// TestConstraintSystem is the in-memory constraint system used by `run` and
// the tests: it stores every gate in emission order, keeps the witness
// assignment and can report the first unsatisfied gate, mirroring the test
// systems of SNARK libraries.
type TestConstraintSystem struct {
	values      []fr.Element
	known       []bool
	inputs      int
	constraints []constraint
	namespaces  []string
}

// NewTestConstraintSystem creates a test system with the constant-one wire
// allocated.
func NewTestConstraintSystem() *TestConstraintSystem {
	var one fr.Element
	one.SetOne()
	return &TestConstraintSystem{
		values: []fr.Element{one},
		known:  []bool{true},
	}
}

func (cs *TestConstraintSystem) alloc(value func() (fr.Element, error)) Variable {
	concrete, err := value()
	cs.values = append(cs.values, concrete)
	cs.known = append(cs.known, err == nil)
	return Variable(len(cs.values) - 1)
}

// Alloc allocates a witness wire.
func (cs *TestConstraintSystem) Alloc(name string, value func() (fr.Element, error)) (Variable, error) {
	return cs.alloc(value), nil
}

// AllocInput allocates a public input wire.
func (cs *TestConstraintSystem) AllocInput(name string, value func() (fr.Element, error)) (Variable, error) {
	cs.inputs++
	return cs.alloc(value), nil
}

// Enforce records the gate a * b = c under the current namespace.
func (cs *TestConstraintSystem) Enforce(name string, a, b, c LinearCombination) {
	qualified := name
	for i := len(cs.namespaces) - 1; i >= 0; i-- {
		qualified = cs.namespaces[i] + "/" + qualified
	}
	cs.constraints = append(cs.constraints, constraint{name: qualified, a: a, b: b, c: c})
}

// PushNamespace enters a gate name scope.
func (cs *TestConstraintSystem) PushNamespace(name string) {
	cs.namespaces = append(cs.namespaces, name)
}

// PopNamespace leaves the innermost gate name scope.
func (cs *TestConstraintSystem) PopNamespace() {
	if len(cs.namespaces) > 0 {
		cs.namespaces = cs.namespaces[:len(cs.namespaces)-1]
	}
}

// NumConstraints returns the number of recorded gates.
func (cs *TestConstraintSystem) NumConstraints() int {
	return len(cs.constraints)
}

// NumInputs returns the number of public input wires.
func (cs *TestConstraintSystem) NumInputs() int {
	return cs.inputs
}

// evaluate computes a linear combination over the witness. The second
// return is false when any involved wire has no known value.
func (cs *TestConstraintSystem) evaluate(lc LinearCombination) (fr.Element, bool) {
	var sum fr.Element
	for _, term := range lc {
		if !cs.known[term.Variable] {
			return fr.Element{}, false
		}
		var product fr.Element
		product.Mul(&term.Coefficient, &cs.values[term.Variable])
		sum.Add(&sum, &product)
	}
	return sum, true
}

// WhichIsUnsatisfied returns the name of the first gate the witness does
// not satisfy, or false when every gate with a known witness holds.
func (cs *TestConstraintSystem) WhichIsUnsatisfied() (string, bool) {
	for _, gate := range cs.constraints {
		a, okA := cs.evaluate(gate.a)
		b, okB := cs.evaluate(gate.b)
		c, okC := cs.evaluate(gate.c)
		if !okA || !okB || !okC {
			continue
		}
		var product fr.Element
		product.Mul(&a, &b)
		if !product.Equal(&c) {
			return gate.name, true
		}
	}
	return "", false
}

// IsSatisfied reports whether every gate with a known witness holds.
func (cs *TestConstraintSystem) IsSatisfied() bool {
	_, unsatisfied := cs.WhichIsUnsatisfied()
	return !unsatisfied
}

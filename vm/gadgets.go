// gadgets.go contains the arithmetic gadgets: every operation allocates its
// result wire, emits the defining rank-1 constraints and range checks the
// result against its scalar type. Field-typed operands bypass the range
// check gadgets; everything else decomposes into exactly bitlength bits, so
// the witness size is fixed by the type.

package vm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/ReggieRumsfeld/zinc/bytecode"
)

// constantScalar allocates a wire pinned to a constant value.
func constantScalar(cs ConstraintSystem, value *big.Int, scalarType bytecode.ScalarType) (Scalar, error) {
	element := fieldFromBigInt(value)
	variable, err := cs.Alloc("constant", func() (fr.Element, error) { return element, nil })
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("pin", NewLC(variable), one, ConstantLC(element))
	return Scalar{Variable: variable, Value: &element, Type: scalarType}, nil
}

// binaryWitness computes the concrete result of a field operation when both
// operands carry witnesses.
func binaryWitness(a, b Scalar, op func(result, x, y *fr.Element)) *fr.Element {
	if a.Value == nil || b.Value == nil {
		return nil
	}
	var result fr.Element
	op(&result, a.Value, b.Value)
	return &result
}

func witnessFn(value *fr.Element) func() (fr.Element, error) {
	if value == nil {
		return UnknownWitness
	}
	concrete := *value
	return func() (fr.Element, error) { return concrete, nil }
}

// decompose enforces that the linear combination equals the weighted sum of
// freshly allocated boolean wires: the canonical range check. The witness
// value must be non-negative and below 2^bits; a concrete witness outside
// that range is an integer overflow.
func decompose(cs ConstraintSystem, lc LinearCombination, value *big.Int, known bool, bits int) ([]Scalar, error) {
	bound := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	if known && (value.Sign() < 0 || value.Cmp(bound) >= 0) {
		return nil, runtimeErrorf(KindIntegerOverflow,
			"value '%s' does not fit into %d bits", value, bits)
	}

	one := NewLC(One)
	result := make([]Scalar, bits)
	sum := LinearCombination{}
	coefficient := new(big.Int).SetInt64(1)
	for i := 0; i < bits; i++ {
		var bitValue *fr.Element
		if known {
			element := fieldFromBigInt(big.NewInt(int64(value.Bit(i))))
			bitValue = &element
		}
		variable, err := cs.Alloc(fmt.Sprintf("bit %d", i), witnessFn(bitValue))
		if err != nil {
			return nil, err
		}
		bit := Scalar{Variable: variable, Value: bitValue, Type: bytecode.BooleanType()}
		// bit * (1 - bit) = 0 keeps the wire boolean
		cs.Enforce(fmt.Sprintf("bit %d boolean", i), bit.LC(), one.Sub(bit.LC()), LinearCombination{})
		result[i] = bit

		sum = sum.Add(bit.LC().Scale(fieldFromBigInt(coefficient)))
		coefficient = new(big.Int).Lsh(coefficient, 1)
	}
	cs.Enforce("recompose", sum, one, lc)
	return result, nil
}

// rangeCheck constrains a scalar to its type's domain. Booleans get the
// single boolean gate, integers decompose into bitlength bits (signed
// values are shifted into the non-negative window first) and the field is
// unconstrained.
func rangeCheck(cs ConstraintSystem, scalar Scalar) error {
	switch scalar.Type.Variant {
	case bytecode.ScalarField:
		return nil
	case bytecode.ScalarBoolean:
		one := NewLC(One)
		cs.Enforce("boolean", scalar.LC(), one.Sub(scalar.LC()), LinearCombination{})
		if scalar.HasValue() {
			value := scalar.BigInt()
			if value.Sign() != 0 && value.Cmp(big.NewInt(1)) != 0 {
				return runtimeErrorf(KindIntegerOverflow, "value '%s' is not a boolean", value)
			}
		}
		return nil
	}

	bits := scalar.Type.Bitlength
	lc := scalar.LC()
	var shifted *big.Int
	known := scalar.HasValue()
	if scalar.Type.IsSigned {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		lc = lc.Add(ConstantLC(fieldFromBigInt(half)))
		if known {
			shifted = new(big.Int).Add(scalar.BigInt(), half)
		}
	} else if known {
		shifted = scalar.BigInt()
	}
	_, err := decompose(cs, lc, shifted, known, bits)
	return err
}

// gadgetAdd allocates a + b and range checks the sum to the operand type.
func gadgetAdd(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) { result.Add(x, y) })
	variable, err := cs.Alloc("sum", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("sum", a.LC().Add(b.LC()), one, NewLC(variable))

	result := Scalar{Variable: variable, Value: value, Type: a.Type}
	return result, rangeCheck(cs, result)
}

// gadgetSub allocates a - b and range checks the difference.
func gadgetSub(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) { result.Sub(x, y) })
	variable, err := cs.Alloc("diff", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("diff", a.LC().Sub(b.LC()), one, NewLC(variable))

	result := Scalar{Variable: variable, Value: value, Type: a.Type}
	return result, rangeCheck(cs, result)
}

// gadgetMul allocates a * b and range checks the product.
func gadgetMul(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) { result.Mul(x, y) })
	variable, err := cs.Alloc("product", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	cs.Enforce("product", a.LC(), b.LC(), NewLC(variable))

	result := Scalar{Variable: variable, Value: value, Type: a.Type}
	return result, rangeCheck(cs, result)
}

// gadgetNeg allocates -a; the result is signed.
func gadgetNeg(cs ConstraintSystem, a Scalar) (Scalar, error) {
	var value *fr.Element
	if a.Value != nil {
		var negated fr.Element
		negated.Neg(a.Value)
		value = &negated
	}
	variable, err := cs.Alloc("neg", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("neg", LinearCombination{}.Sub(a.LC()), one, NewLC(variable))

	result := Scalar{
		Variable: variable,
		Value:    value,
		Type:     bytecode.IntegerType(true, a.Type.Bitlength),
	}
	return result, rangeCheck(cs, result)
}

// gadgetDivRem allocates the Euclidean quotient and remainder of a and b
// and enforces `q * b = a - r` plus the range checks. A concrete zero
// divisor fails immediately.
func gadgetDivRem(cs ConstraintSystem, a, b Scalar) (Scalar, Scalar, error) {
	var quotientValue, remainderValue *fr.Element
	if a.Value != nil && b.Value != nil {
		divisor := b.BigInt()
		if divisor.Sign() == 0 {
			return Scalar{}, Scalar{}, runtimeErrorf(KindDivisionByZero, "division by zero")
		}
		quotient := new(big.Int)
		remainder := new(big.Int)
		quotient.QuoRem(a.BigInt(), divisor, remainder)
		if remainder.Sign() < 0 {
			if divisor.Sign() > 0 {
				quotient.Sub(quotient, big.NewInt(1))
				remainder.Add(remainder, divisor)
			} else {
				quotient.Add(quotient, big.NewInt(1))
				remainder.Sub(remainder, divisor)
			}
		}
		quotientElement := fieldFromBigInt(quotient)
		remainderElement := fieldFromBigInt(remainder)
		quotientValue = &quotientElement
		remainderValue = &remainderElement
	}

	quotientVariable, err := cs.Alloc("quotient", witnessFn(quotientValue))
	if err != nil {
		return Scalar{}, Scalar{}, err
	}
	remainderVariable, err := cs.Alloc("remainder", witnessFn(remainderValue))
	if err != nil {
		return Scalar{}, Scalar{}, err
	}

	quotient := Scalar{Variable: quotientVariable, Value: quotientValue, Type: a.Type}
	remainder := Scalar{
		Variable: remainderVariable,
		Value:    remainderValue,
		Type:     bytecode.IntegerType(false, a.Type.Bitlength),
	}

	// q * b = a - r
	cs.Enforce("euclidean", quotient.LC(), b.LC(), a.LC().Sub(remainder.LC()))

	if err := rangeCheck(cs, quotient); err != nil {
		return Scalar{}, Scalar{}, err
	}
	if err := rangeCheck(cs, remainder); err != nil {
		return Scalar{}, Scalar{}, err
	}
	return quotient, remainder, nil
}

// gadgetIsZero allocates the `value == 0` flag using the inverse trick:
// v * inv = 1 - flag and v * flag = 0.
func gadgetIsZero(cs ConstraintSystem, a Scalar) (Scalar, error) {
	var flagValue, invValue *fr.Element
	if a.Value != nil {
		var flag, inv fr.Element
		if a.Value.IsZero() {
			flag.SetOne()
		} else {
			inv.Inverse(a.Value)
		}
		flagValue = &flag
		invValue = &inv
	}

	invVariable, err := cs.Alloc("inverse", witnessFn(invValue))
	if err != nil {
		return Scalar{}, err
	}
	flagVariable, err := cs.Alloc("flag", witnessFn(flagValue))
	if err != nil {
		return Scalar{}, err
	}
	flag := Scalar{Variable: flagVariable, Value: flagValue, Type: bytecode.BooleanType()}

	one := NewLC(One)
	cs.Enforce("inverse", a.LC(), NewLC(invVariable), one.Sub(flag.LC()))
	cs.Enforce("zero product", a.LC(), flag.LC(), LinearCombination{})
	return flag, nil
}

// gadgetEq allocates `a == b`.
func gadgetEq(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	diff, err := gadgetRawDiff(cs, a, b)
	if err != nil {
		return Scalar{}, err
	}
	return gadgetIsZero(cs, diff)
}

// gadgetRawDiff allocates a - b without a range check: comparison inputs
// already carry their own range checks from earlier operations.
func gadgetRawDiff(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) { result.Sub(x, y) })
	variable, err := cs.Alloc("raw diff", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("raw diff", a.LC().Sub(b.LC()), one, NewLC(variable))
	return Scalar{Variable: variable, Value: value, Type: bytecode.FieldType()}, nil
}

// gadgetNot allocates the boolean complement 1 - a.
func gadgetNot(cs ConstraintSystem, a Scalar) (Scalar, error) {
	var value *fr.Element
	if a.Value != nil {
		var one, complement fr.Element
		one.SetOne()
		complement.Sub(&one, a.Value)
		value = &complement
	}
	variable, err := cs.Alloc("not", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("not", one.Sub(a.LC()), one, NewLC(variable))
	return Scalar{Variable: variable, Value: value, Type: bytecode.BooleanType()}, nil
}

// comparisonBits is the decomposition width of a comparison: the operand
// bitlength for integers, one below the field bitlength for raw field
// elements.
func comparisonBits(scalarType bytecode.ScalarType) int {
	if scalarType.IsField() {
		return bytecode.BitlengthField - 1
	}
	return scalarType.Bitlength
}

// gadgetGe allocates `a >= b` by decomposing a - b + 2^n into n+1 bits;
// the carry bit is the result.
func gadgetGe(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	bits := comparisonBits(a.Type)
	offset := new(big.Int).Lsh(big.NewInt(1), uint(bits))

	lc := a.LC().Sub(b.LC()).Add(ConstantLC(fieldFromBigInt(offset)))
	var shifted *big.Int
	known := a.Value != nil && b.Value != nil
	if known {
		shifted = new(big.Int).Add(new(big.Int).Sub(a.BigInt(), b.BigInt()), offset)
	}
	decomposed, err := decompose(cs, lc, shifted, known, bits+1)
	if err != nil {
		return Scalar{}, err
	}
	return decomposed[bits], nil
}

// gadgetSelect allocates `condition * then + (1 - condition) * else`: the
// single point where branch results merge back together.
func gadgetSelect(cs ConstraintSystem, condition, thenCase, elseCase Scalar) (Scalar, error) {
	var value *fr.Element
	if condition.Value != nil && thenCase.Value != nil && elseCase.Value != nil {
		var merged fr.Element
		if condition.Value.IsZero() {
			merged = *elseCase.Value
		} else {
			merged = *thenCase.Value
		}
		value = &merged
	}
	variable, err := cs.Alloc("selected", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	// condition * (then - else) = selected - else
	cs.Enforce("select",
		condition.LC(),
		thenCase.LC().Sub(elseCase.LC()),
		NewLC(variable).Sub(elseCase.LC()))

	return Scalar{Variable: variable, Value: value, Type: thenCase.Type}, nil
}

// scalarBits decomposes an integer scalar into its bits, least significant
// first. Signed scalars are shifted into the non-negative window, so the
// top bit is the offset sign bit.
func scalarBits(cs ConstraintSystem, a Scalar) ([]Scalar, error) {
	bits := a.Type.Bitlength
	lc := a.LC()
	var value *big.Int
	known := a.HasValue()
	if a.Type.IsSigned {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		lc = lc.Add(ConstantLC(fieldFromBigInt(half)))
		if known {
			value = new(big.Int).Add(a.BigInt(), half)
		}
	} else if known {
		value = a.BigInt()
	}
	return decompose(cs, lc, value, known, bits)
}

// recomposeBits allocates the weighted sum of bits, least significant
// first, as a scalar of the given type.
func recomposeBits(cs ConstraintSystem, bits []Scalar, scalarType bytecode.ScalarType) (Scalar, error) {
	sum := LinearCombination{}
	coefficient := new(big.Int).SetInt64(1)
	value := new(big.Int)
	known := true
	for i, bit := range bits {
		sum = sum.Add(bit.LC().Scale(fieldFromBigInt(coefficient)))
		if bit.Value == nil {
			known = false
		} else if !bit.Value.IsZero() {
			value.SetBit(value, i, 1)
		}
		coefficient = new(big.Int).Lsh(coefficient, 1)
	}

	var witnessValue *fr.Element
	if known {
		element := fieldFromBigInt(value)
		witnessValue = &element
	}
	variable, err := cs.Alloc("recomposed", witnessFn(witnessValue))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("recomposed", sum, one, NewLC(variable))
	return Scalar{Variable: variable, Value: witnessValue, Type: scalarType}, nil
}

// bitwiseCombine applies a per-bit boolean operation to two decomposed
// operands and recomposes the result.
func bitwiseCombine(cs ConstraintSystem, a, b Scalar, combine func(ConstraintSystem, Scalar, Scalar) (Scalar, error)) (Scalar, error) {
	aBits, err := scalarBits(cs, a)
	if err != nil {
		return Scalar{}, err
	}
	bBits, err := scalarBits(cs, b)
	if err != nil {
		return Scalar{}, err
	}
	combined := make([]Scalar, len(aBits))
	for i := range aBits {
		combined[i], err = combine(cs, aBits[i], bBits[i])
		if err != nil {
			return Scalar{}, err
		}
	}
	return recomposeBits(cs, combined, a.Type)
}

// gadgetBitAnd allocates the boolean product of two bits.
func gadgetBitAnd(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) { result.Mul(x, y) })
	variable, err := cs.Alloc("and", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	cs.Enforce("and", a.LC(), b.LC(), NewLC(variable))
	return Scalar{Variable: variable, Value: value, Type: bytecode.BooleanType()}, nil
}

// gadgetBitOr allocates the boolean disjunction: (1-a)(1-b) = 1-c.
func gadgetBitOr(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) {
		var product fr.Element
		product.Mul(x, y)
		result.Add(x, y)
		result.Sub(result, &product)
	})
	variable, err := cs.Alloc("or", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	one := NewLC(One)
	cs.Enforce("or", one.Sub(a.LC()), one.Sub(b.LC()), one.Sub(NewLC(variable)))
	return Scalar{Variable: variable, Value: value, Type: bytecode.BooleanType()}, nil
}

// gadgetBitXor allocates the boolean exclusive or: 2a * b = a + b - c.
func gadgetBitXor(cs ConstraintSystem, a, b Scalar) (Scalar, error) {
	value := binaryWitness(a, b, func(result, x, y *fr.Element) {
		var product fr.Element
		product.Mul(x, y)
		product.Add(&product, &product)
		result.Add(x, y)
		result.Sub(result, &product)
	})
	variable, err := cs.Alloc("xor", witnessFn(value))
	if err != nil {
		return Scalar{}, err
	}
	cs.Enforce("xor", a.LC().Add(a.LC()), b.LC(), a.LC().Add(b.LC()).Sub(NewLC(variable)))
	return Scalar{Variable: variable, Value: value, Type: bytecode.BooleanType()}, nil
}

// gadgetShift recomposes the operand's bits displaced by a concrete shift
// amount. The amount must carry a witness; a circuit cannot branch on an
// unknown displacement.
func gadgetShift(cs ConstraintSystem, a, amount Scalar, left bool) (Scalar, error) {
	if amount.Value == nil {
		return Scalar{}, runtimeErrorf(KindInternalError, "the shift amount must be known")
	}
	displacement := amount.BigInt()
	if !displacement.IsInt64() || displacement.Sign() < 0 {
		return Scalar{}, runtimeErrorf(KindIntegerOverflow,
			"shift amount '%s' is out of range", displacement)
	}
	shift := int(displacement.Int64())

	bits, err := scalarBits(cs, a)
	if err != nil {
		return Scalar{}, err
	}
	width := len(bits)
	shifted := make([]Scalar, width)
	for i := 0; i < width; i++ {
		var source int
		if left {
			source = i - shift
		} else {
			source = i + shift
		}
		if source >= 0 && source < width {
			shifted[i] = bits[source]
		} else {
			constant, err := constantScalar(cs, big.NewInt(0), bytecode.BooleanType())
			if err != nil {
				return Scalar{}, err
			}
			shifted[i] = constant
		}
	}
	return recomposeBits(cs, shifted, a.Type)
}

// gadgetCast retags a scalar to a target type. Casts into the field are
// free; casts between integer widths re-check the target range.
func gadgetCast(cs ConstraintSystem, a Scalar, target bytecode.ScalarType) (Scalar, error) {
	result := Scalar{Variable: a.Variable, Value: a.Value, Type: target}
	if target.IsField() {
		return result, nil
	}
	if a.Type == target {
		return result, nil
	}
	return result, rangeCheck(cs, result)
}

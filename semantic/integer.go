// integer.go contains the constant integer engine: literal conversion, the
// minimal-bitlength rule, arithmetic with exact overflow detection, bitwise
// restrictions and casting. All arithmetic runs on arbitrary-precision
// values first; the declared bitlength is re-checked afterwards.

package semantic

import (
	"math"
	"math/big"
)

// NewIntegerFromLiteral converts a digit string under its base to an
// arbitrary-precision value and infers the minimal bitlength enough to
// contain it. Literals are always unsigned; negation is a separate operator
// which re-types the constant as signed.
func NewIntegerFromLiteral(digits string, base int) (IntegerConstant, error) {
	value, ok := new(big.Int).SetString(digits, base)
	if !ok {
		// the lexer validates digits; a failure here is an internal defect
		return IntegerConstant{}, errorf(KindIntegerTooLarge,
			"literal '%s' is not valid under base %d", digits, base)
	}
	bitlength, err := MinimalBitlength(value, false)
	if err != nil {
		return IntegerConstant{}, err
	}
	return IntegerConstant{
		Value:     value,
		IsSigned:  false,
		Bitlength: bitlength,
	}, nil
}

// MinimalBitlength infers the minimal bitlength enough to represent the
// value with the sign specified as isSigned.
//
// The bitlength starts at one byte and grows byte-wise up to the maximum
// ordinary integer bitlength; the next step jumps to the field bitlength,
// and values beyond the field are rejected.
func MinimalBitlength(value *big.Int, isSigned bool) (int, error) {
	bitlength := BitlengthByte
	exponent := new(big.Int).Lsh(big.NewInt(1), BitlengthByte)

	for {
		var fits bool
		if isSigned {
			if value.Sign() < 0 {
				bound := new(big.Int).Neg(new(big.Int).Div(exponent, big.NewInt(2)))
				fits = value.Cmp(bound) >= 0
			} else {
				bound := new(big.Int).Div(exponent, big.NewInt(2))
				fits = value.Cmp(bound) < 0
			}
		} else {
			fits = value.Cmp(exponent) < 0
		}
		if fits {
			break
		}

		switch bitlength {
		case BitlengthMaxInt:
			exponent.Lsh(exponent, BitlengthField-BitlengthMaxInt)
			bitlength += BitlengthField - BitlengthMaxInt
		case BitlengthField:
			return 0, errorf(KindIntegerTooLarge,
				"integer '%s' is larger than %d bits", value, BitlengthField)
		default:
			exponent.Lsh(exponent, BitlengthByte)
			bitlength += BitlengthByte
		}
	}

	if value.Sign() < 0 && !isSigned {
		return 0, errorf(KindUnsignedNegative,
			"found a negative value '%s' of unsigned type", value)
	}

	return bitlength, nil
}

// minimalBitlengthBigInts returns the largest minimal bitlength among the
// values under the given signedness, at least one byte.
func minimalBitlengthBigInts(values []*big.Int, isSigned bool) (int, error) {
	result := BitlengthByte
	for _, value := range values {
		bitlength, err := MinimalBitlength(value, isSigned)
		if err != nil {
			return 0, err
		}
		if bitlength > result {
			result = bitlength
		}
	}
	return result, nil
}

// HasSameTypeAs reports whether two integer constants share sign, bitlength
// and enumeration identity.
func (c IntegerConstant) HasSameTypeAs(other IntegerConstant) bool {
	if c.IsSigned != other.IsSigned || c.Bitlength != other.Bitlength {
		return false
	}
	switch {
	case c.Enumeration != nil && other.Enumeration != nil:
		return c.Enumeration.Identifier == other.Enumeration.Identifier
	case c.Enumeration == nil && other.Enumeration == nil:
		return true
	}
	return false
}

// euclideanDivRem computes the Euclidean quotient and remainder: the
// remainder is always non-negative. A zero divisor returns false.
func euclideanDivRem(a, b *big.Int) (*big.Int, *big.Int, bool) {
	if b.Sign() == 0 {
		return nil, nil, false
	}
	quotient := new(big.Int)
	remainder := new(big.Int)
	quotient.QuoRem(a, b, remainder)
	if remainder.Sign() < 0 {
		if b.Sign() > 0 {
			quotient.Sub(quotient, big.NewInt(1))
			remainder.Add(remainder, b)
		} else {
			quotient.Add(quotient, big.NewInt(1))
			remainder.Sub(remainder, b)
		}
	}
	return quotient, remainder, true
}

// checkedResult re-checks the minimal bitlength of an operation result
// against the declared bitlength and wraps it back into a constant of the
// same type.
func (c IntegerConstant) checkedResult(value *big.Int, overflowKind string) (IntegerConstant, error) {
	if value.Sign() < 0 && !c.IsSigned {
		return IntegerConstant{}, errorf(overflowKind,
			"value '%s' overflows type '%s'", value, c.Type())
	}
	bitlength, err := MinimalBitlength(value, c.IsSigned)
	if err != nil {
		return IntegerConstant{}, err
	}
	if bitlength > c.Bitlength {
		return IntegerConstant{}, errorf(overflowKind,
			"value '%s' overflows type '%s'", value, c.Type())
	}
	return IntegerConstant{
		Value:       value,
		IsSigned:    c.IsSigned,
		Bitlength:   c.Bitlength,
		Enumeration: c.Enumeration,
	}, nil
}

// Add folds a constant addition.
func (c IntegerConstant) Add(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("Addition", c.Type(), other.Type())
	}
	return c.checkedResult(new(big.Int).Add(c.Value, other.Value), KindOverflowAddition)
}

// Subtract folds a constant subtraction.
func (c IntegerConstant) Subtract(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("Subtraction", c.Type(), other.Type())
	}
	return c.checkedResult(new(big.Int).Sub(c.Value, other.Value), KindOverflowSubtraction)
}

// Multiply folds a constant multiplication.
func (c IntegerConstant) Multiply(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("Multiplication", c.Type(), other.Type())
	}
	return c.checkedResult(new(big.Int).Mul(c.Value, other.Value), KindOverflowMultiplication)
}

// Divide folds a constant division with Euclidean semantics. Division is
// forbidden on the field.
func (c IntegerConstant) Divide(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("Division", c.Type(), other.Type())
	}
	if c.Bitlength == BitlengthField {
		return IntegerConstant{}, errorf(KindForbiddenFieldDivision,
			"the division operator is forbidden for the 'field' type")
	}
	quotient, _, ok := euclideanDivRem(c.Value, other.Value)
	if !ok {
		return IntegerConstant{}, errorf(KindZeroDivision, "division by zero")
	}
	return c.checkedResult(quotient, KindOverflowDivision)
}

// Remainder folds a constant remainder with Euclidean semantics. The
// remainder is forbidden on the field.
func (c IntegerConstant) Remainder(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("Remainder", c.Type(), other.Type())
	}
	if c.Bitlength == BitlengthField {
		return IntegerConstant{}, errorf(KindForbiddenFieldRemainder,
			"the remainder operator is forbidden for the 'field' type")
	}
	_, remainder, ok := euclideanDivRem(c.Value, other.Value)
	if !ok {
		return IntegerConstant{}, errorf(KindZeroRemainder, "remainder of division by zero")
	}
	return c.checkedResult(remainder, KindOverflowRemainder)
}

// checkBitwiseAllowed rejects bitwise operations on signed operands and on
// the field.
func (c IntegerConstant) checkBitwiseAllowed() error {
	if c.IsSigned {
		return errorf(KindForbiddenSignedBitwise,
			"bitwise operators are forbidden for signed types")
	}
	if c.Bitlength == BitlengthField {
		return errorf(KindForbiddenFieldBitwise,
			"bitwise operators are forbidden for the 'field' type")
	}
	return nil
}

// BitwiseOr folds a constant bitwise OR.
func (c IntegerConstant) BitwiseOr(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("BitwiseOr", c.Type(), other.Type())
	}
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	result := c
	result.Value = new(big.Int).Or(c.Value, other.Value)
	return result, nil
}

// BitwiseXor folds a constant bitwise XOR.
func (c IntegerConstant) BitwiseXor(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("BitwiseXor", c.Type(), other.Type())
	}
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	result := c
	result.Value = new(big.Int).Xor(c.Value, other.Value)
	return result, nil
}

// BitwiseAnd folds a constant bitwise AND.
func (c IntegerConstant) BitwiseAnd(other IntegerConstant) (IntegerConstant, error) {
	if !c.HasSameTypeAs(other) {
		return IntegerConstant{}, typesMismatch("BitwiseAnd", c.Type(), other.Type())
	}
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	result := c
	result.Value = new(big.Int).And(c.Value, other.Value)
	return result, nil
}

// shiftAmount validates the right operand of a shift: it must be unsigned
// and fit the host integer size.
func shiftAmount(other IntegerConstant) (uint, error) {
	if other.IsSigned {
		return 0, errorf(KindTypesMismatch+"Shift",
			"the shift amount must be an unsigned integer, found '%s'", other.Type())
	}
	if !other.Value.IsUint64() || other.Value.Uint64() > math.MaxInt32 {
		return 0, errorf(KindIntegerTooLarge,
			"shift amount '%s' is too large", other.Value)
	}
	return uint(other.Value.Uint64()), nil
}

// BitwiseShiftLeft folds a constant left shift. Bits shifted beyond the
// declared bitlength are discarded, matching the runtime gadget.
func (c IntegerConstant) BitwiseShiftLeft(other IntegerConstant) (IntegerConstant, error) {
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	amount, err := shiftAmount(other)
	if err != nil {
		return IntegerConstant{}, err
	}
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(c.Bitlength)), big.NewInt(1))
	result := c
	result.Value = new(big.Int).And(new(big.Int).Lsh(c.Value, amount), mask)
	return result, nil
}

// BitwiseShiftRight folds a constant right shift.
func (c IntegerConstant) BitwiseShiftRight(other IntegerConstant) (IntegerConstant, error) {
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	amount, err := shiftAmount(other)
	if err != nil {
		return IntegerConstant{}, err
	}
	result := c
	result.Value = new(big.Int).Rsh(c.Value, amount)
	return result, nil
}

// BitwiseNot folds a constant bitwise NOT within the declared bitlength.
func (c IntegerConstant) BitwiseNot() (IntegerConstant, error) {
	if err := c.checkBitwiseAllowed(); err != nil {
		return IntegerConstant{}, err
	}
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(c.Bitlength)), big.NewInt(1))
	result := c
	result.Value = new(big.Int).Xor(c.Value, mask)
	return result, nil
}

// Negate folds a constant negation. Negation always yields a signed
// constant and is forbidden on the field.
func (c IntegerConstant) Negate() (IntegerConstant, error) {
	if c.Bitlength == BitlengthField {
		return IntegerConstant{}, errorf(KindForbiddenFieldNegation,
			"the negation operator is forbidden for the 'field' type")
	}
	value := new(big.Int).Neg(c.Value)
	bitlength, err := MinimalBitlength(value, true)
	if err != nil {
		return IntegerConstant{}, err
	}
	if bitlength > c.Bitlength {
		return IntegerConstant{}, errorf(KindOverflowNegation,
			"value '%s' overflows type '%s'", value, IntegerSigned(c.Bitlength))
	}
	return IntegerConstant{
		Value:     value,
		IsSigned:  true,
		Bitlength: c.Bitlength,
	}, nil
}

// Cast re-types the constant. The target domain is range checked exactly;
// enumeration identity is dropped.
func (c IntegerConstant) Cast(isSigned bool, bitlength int) (IntegerConstant, error) {
	if c.Value.Sign() < 0 && !isSigned {
		return IntegerConstant{}, errorf(KindOverflowCasting,
			"value '%s' overflows when casting to type '%s'", c.Value, ScalarInteger(isSigned, bitlength))
	}
	minimal, err := MinimalBitlength(c.Value, isSigned)
	if err != nil {
		return IntegerConstant{}, err
	}
	if minimal > bitlength {
		return IntegerConstant{}, errorf(KindOverflowCasting,
			"value '%s' overflows when casting to type '%s'", c.Value, ScalarInteger(isSigned, bitlength))
	}
	return IntegerConstant{
		Value:     new(big.Int).Set(c.Value),
		IsSigned:  isSigned,
		Bitlength: bitlength,
	}, nil
}

// comparison folds the six comparison operators; equality requires exact
// type identity including the enumeration tag.
func (c IntegerConstant) compare(other IntegerConstant, operator string) (BooleanConstant, error) {
	if !c.HasSameTypeAs(other) {
		return BooleanConstant{}, typesMismatch(operator, c.Type(), other.Type())
	}
	result := c.Value.Cmp(other.Value)
	switch operator {
	case "Equals":
		return BooleanConstant{Value: result == 0}, nil
	case "NotEquals":
		return BooleanConstant{Value: result != 0}, nil
	case "Greater":
		return BooleanConstant{Value: result > 0}, nil
	case "Lesser":
		return BooleanConstant{Value: result < 0}, nil
	case "GreaterEquals":
		return BooleanConstant{Value: result >= 0}, nil
	default:
		return BooleanConstant{Value: result <= 0}, nil
	}
}

// Equals folds `==`.
func (c IntegerConstant) Equals(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "Equals")
}

// NotEquals folds `!=`.
func (c IntegerConstant) NotEquals(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "NotEquals")
}

// Greater folds `>`.
func (c IntegerConstant) Greater(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "Greater")
}

// Lesser folds `<`.
func (c IntegerConstant) Lesser(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "Lesser")
}

// GreaterEquals folds `>=`.
func (c IntegerConstant) GreaterEquals(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "GreaterEquals")
}

// LesserEquals folds `<=`.
func (c IntegerConstant) LesserEquals(other IntegerConstant) (BooleanConstant, error) {
	return c.compare(other, "LesserEquals")
}

// Range builds a half-open loop bound from two constants. The signedness of
// the resulting range is the disjunction of the operand signs; the
// bitlength is the largest of the operand and minimal bitlengths.
func (c IntegerConstant) Range(other IntegerConstant) (RangeConstant, error) {
	isSigned := c.IsSigned || other.IsSigned
	minimal, err := minimalBitlengthBigInts([]*big.Int{c.Value, other.Value}, isSigned)
	if err != nil {
		return RangeConstant{}, err
	}
	bitlength := c.Bitlength
	if other.Bitlength > bitlength {
		bitlength = other.Bitlength
	}
	if minimal > bitlength {
		bitlength = minimal
	}
	return RangeConstant{
		Start:       c.Value,
		End:         other.Value,
		IsSigned:    isSigned,
		Bitlength:   bitlength,
		IsInclusive: false,
	}, nil
}

// RangeInclusive builds an inclusive loop bound from two constants.
func (c IntegerConstant) RangeInclusive(other IntegerConstant) (RangeConstant, error) {
	result, err := c.Range(other)
	if err != nil {
		return RangeConstant{}, err
	}
	result.IsInclusive = true
	return result, nil
}

// ToInt converts the constant to a host integer, for array sizes and loop
// bounds.
func (c IntegerConstant) ToInt() (int, error) {
	if !c.Value.IsInt64() {
		return 0, errorf(KindIntegerTooLarge, "integer '%s' is too large here", c.Value)
	}
	return int(c.Value.Int64()), nil
}

package semantic

import (
	"math/big"
	"testing"
)

func pow2(exponent uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), exponent)
}

func assertKind(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a %s error, got nil", expected)
	}
	typed, ok := err.(Error)
	if !ok {
		t.Fatalf("expected a semantic.Error, got %T: %v", err, err)
	}
	if typed.Kind != expected {
		t.Errorf("error kind - got: %s, want: %s (%s)", typed.Kind, expected, typed.Message)
	}
}

func TestMinimalBitlength(t *testing.T) {
	tests := []struct {
		name     string
		value    *big.Int
		isSigned bool
		expected int
	}{
		{"zero", big.NewInt(0), false, 8},
		{"u8 max", big.NewInt(255), false, 8},
		{"u8 max plus one", big.NewInt(256), false, 16},
		{"u16 max", big.NewInt(65535), false, 16},
		{"signed byte min", big.NewInt(-128), true, 8},
		{"signed byte min minus one", big.NewInt(-129), true, 16},
		{"signed byte max", big.NewInt(127), true, 8},
		{"signed byte max plus one", big.NewInt(128), true, 16},
		{"top ordinary integer", new(big.Int).Sub(pow2(248), big.NewInt(1)), false, 248},
		{"first field-only value", pow2(248), false, 254},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinimalBitlength(tt.value, tt.isSigned)
			if err != nil {
				t.Fatalf("MinimalBitlength(%s) raised an error: %v", tt.value, err)
			}
			if got != tt.expected {
				t.Errorf("MinimalBitlength(%s) - got: %d, want: %d", tt.value, got, tt.expected)
			}
		})
	}
}

func TestMinimalBitlengthErrors(t *testing.T) {
	_, err := MinimalBitlength(pow2(254), false)
	assertKind(t, err, KindIntegerTooLarge)

	_, err = MinimalBitlength(big.NewInt(-1), false)
	assertKind(t, err, KindUnsignedNegative)
}

// bitlength minimality: an accepted literal never fits one step below
func TestBitlengthMinimality(t *testing.T) {
	values := []*big.Int{
		big.NewInt(1),
		big.NewInt(255),
		big.NewInt(256),
		big.NewInt(65536),
		pow2(247),
	}
	for _, value := range values {
		bitlength, err := MinimalBitlength(value, false)
		if err != nil {
			t.Fatalf("MinimalBitlength(%s) raised an error: %v", value, err)
		}
		if bitlength == BitlengthByte {
			continue
		}
		smaller := bitlength - BitlengthByte
		if bitlength == BitlengthField {
			smaller = BitlengthMaxInt
		}
		bound := pow2(uint(smaller))
		if value.Cmp(bound) < 0 {
			t.Errorf("value %s fits %d bits but was assigned %d", value, smaller, bitlength)
		}
	}
}

func newInteger(value int64, isSigned bool, bitlength int) IntegerConstant {
	return IntegerConstant{
		Value:     big.NewInt(value),
		IsSigned:  isSigned,
		Bitlength: bitlength,
	}
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		run      func() (IntegerConstant, error)
		expected int64
	}{
		{"addition", func() (IntegerConstant, error) {
			return newInteger(2, false, 8).Add(newInteger(12, false, 8))
		}, 14},
		{"subtraction", func() (IntegerConstant, error) {
			return newInteger(12, false, 8).Subtract(newInteger(2, false, 8))
		}, 10},
		{"multiplication", func() (IntegerConstant, error) {
			return newInteger(12, false, 8).Multiply(newInteger(2, false, 8))
		}, 24},
		{"division", func() (IntegerConstant, error) {
			return newInteger(13, false, 8).Divide(newInteger(4, false, 8))
		}, 3},
		{"remainder", func() (IntegerConstant, error) {
			return newInteger(13, false, 8).Remainder(newInteger(4, false, 8))
		}, 1},
		{"euclidean division", func() (IntegerConstant, error) {
			return newInteger(-13, true, 8).Divide(newInteger(4, true, 8))
		}, -4},
		{"euclidean remainder", func() (IntegerConstant, error) {
			return newInteger(-13, true, 8).Remainder(newInteger(4, true, 8))
		}, 3},
		{"bitwise or", func() (IntegerConstant, error) {
			return newInteger(0b1010, false, 8).BitwiseOr(newInteger(0b0101, false, 8))
		}, 0b1111},
		{"bitwise and", func() (IntegerConstant, error) {
			return newInteger(0b1100, false, 8).BitwiseAnd(newInteger(0b1010, false, 8))
		}, 0b1000},
		{"shift left", func() (IntegerConstant, error) {
			return newInteger(0b0011, false, 8).BitwiseShiftLeft(newInteger(2, false, 8))
		}, 0b1100},
		{"shift left discards high bits", func() (IntegerConstant, error) {
			return newInteger(0b1000_0001, false, 8).BitwiseShiftLeft(newInteger(1, false, 8))
		}, 0b0000_0010},
		{"shift right", func() (IntegerConstant, error) {
			return newInteger(0b1100, false, 8).BitwiseShiftRight(newInteger(2, false, 8))
		}, 0b0011},
		{"bitwise not", func() (IntegerConstant, error) {
			return newInteger(0b0000_1111, false, 8).BitwiseNot()
		}, 0b1111_0000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil {
				t.Fatalf("operation raised an error: %v", err)
			}
			if got.Value.Int64() != tt.expected {
				t.Errorf("result - got: %s, want: %d", got.Value, tt.expected)
			}
		})
	}
}

func TestIntegerArithmeticErrors(t *testing.T) {
	field := IntegerConstant{Value: big.NewInt(7), IsSigned: true, Bitlength: BitlengthField}

	tests := []struct {
		name     string
		run      func() (IntegerConstant, error)
		expected string
	}{
		{"overflow addition", func() (IntegerConstant, error) {
			return newInteger(255, false, 8).Add(newInteger(1, false, 8))
		}, KindOverflowAddition},
		{"overflow subtraction", func() (IntegerConstant, error) {
			return newInteger(0, false, 8).Subtract(newInteger(1, false, 8))
		}, KindOverflowSubtraction},
		{"overflow multiplication", func() (IntegerConstant, error) {
			return newInteger(16, false, 8).Multiply(newInteger(16, false, 8))
		}, KindOverflowMultiplication},
		{"zero division", func() (IntegerConstant, error) {
			return newInteger(10, false, 8).Divide(newInteger(0, false, 8))
		}, KindZeroDivision},
		{"zero remainder", func() (IntegerConstant, error) {
			return newInteger(10, false, 8).Remainder(newInteger(0, false, 8))
		}, KindZeroRemainder},
		{"types mismatch", func() (IntegerConstant, error) {
			return newInteger(1, false, 8).Add(newInteger(1, false, 16))
		}, KindTypesMismatch + "Addition"},
		{"signed bitwise", func() (IntegerConstant, error) {
			return newInteger(1, true, 8).BitwiseOr(newInteger(1, true, 8))
		}, KindForbiddenSignedBitwise},
		{"field division", func() (IntegerConstant, error) {
			return field.Divide(field)
		}, KindForbiddenFieldDivision},
		{"field remainder", func() (IntegerConstant, error) {
			return field.Remainder(field)
		}, KindForbiddenFieldRemainder},
		{"field negation", func() (IntegerConstant, error) {
			return field.Negate()
		}, KindForbiddenFieldNegation},
		{"signed shift amount", func() (IntegerConstant, error) {
			return newInteger(4, false, 8).BitwiseShiftRight(newInteger(1, true, 8))
		}, KindTypesMismatch + "Shift"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			assertKind(t, err, tt.expected)
		})
	}
}

func TestFieldBitwiseForbidden(t *testing.T) {
	field := IntegerConstant{Value: big.NewInt(7), IsSigned: false, Bitlength: BitlengthField}
	_, err := field.BitwiseOr(field)
	assertKind(t, err, KindForbiddenFieldBitwise)
}

func TestNegationYieldsSigned(t *testing.T) {
	result, err := newInteger(5, false, 8).Negate()
	if err != nil {
		t.Fatalf("negation raised an error: %v", err)
	}
	if !result.IsSigned || result.Value.Int64() != -5 || result.Bitlength != 8 {
		t.Errorf("negation - got: %+v", result)
	}

	// -128 does not fit i8 when negated back
	_, err = newInteger(-128, true, 8).Negate()
	assertKind(t, err, KindOverflowNegation)
}

func TestIntegerCast(t *testing.T) {
	widened, err := newInteger(200, false, 8).Cast(false, 16)
	if err != nil {
		t.Fatalf("cast raised an error: %v", err)
	}
	if widened.Bitlength != 16 || widened.Value.Int64() != 200 {
		t.Errorf("cast - got: %+v", widened)
	}

	// constants cast by value: a fitting narrow succeeds
	narrowed, err := newInteger(200, false, 16).Cast(false, 8)
	if err != nil {
		t.Fatalf("narrowing cast raised an error: %v", err)
	}
	if narrowed.Bitlength != 8 {
		t.Errorf("narrowing cast - got: %+v", narrowed)
	}

	_, err = newInteger(256, false, 16).Cast(false, 8)
	assertKind(t, err, KindOverflowCasting)

	_, err = newInteger(-1, true, 8).Cast(false, 8)
	assertKind(t, err, KindOverflowCasting)
}

func TestEnumerationIdentity(t *testing.T) {
	first := Type{Variant: VariantEnumeration, Identifier: "A", Bitlength: 8}
	second := Type{Variant: VariantEnumeration, Identifier: "B", Bitlength: 8}

	left := IntegerConstant{Value: big.NewInt(0), Bitlength: 8, Enumeration: &first}
	right := IntegerConstant{Value: big.NewInt(0), Bitlength: 8, Enumeration: &second}

	_, err := left.Equals(right)
	assertKind(t, err, KindTypesMismatch+"Equals")

	same := IntegerConstant{Value: big.NewInt(0), Bitlength: 8, Enumeration: &first}
	result, err := left.Equals(same)
	if err != nil {
		t.Fatalf("same-enum equality raised an error: %v", err)
	}
	if !result.Value {
		t.Error("identical enum constants must compare equal")
	}

	// an enum constant never matches the plain integer of the same shape
	plain := newInteger(0, false, 8)
	_, err = left.Equals(plain)
	assertKind(t, err, KindTypesMismatch+"Equals")
}

func TestRangeSignedness(t *testing.T) {
	// the signedness of a range is the disjunction of the operand signs,
	// for both the exclusive and the inclusive form
	start := newInteger(-1, true, 8)
	end := newInteger(10, false, 8)

	exclusive, err := start.Range(end)
	if err != nil {
		t.Fatalf("range raised an error: %v", err)
	}
	inclusive, err := start.RangeInclusive(end)
	if err != nil {
		t.Fatalf("inclusive range raised an error: %v", err)
	}
	if !exclusive.IsSigned || !inclusive.IsSigned {
		t.Error("both range forms must inherit signedness from either operand")
	}
	if exclusive.Iterations() != 11 || inclusive.Iterations() != 12 {
		t.Errorf("iterations - got: %d and %d, want 11 and 12",
			exclusive.Iterations(), inclusive.Iterations())
	}
}

func TestLiteralConversion(t *testing.T) {
	tests := []struct {
		digits    string
		base      int
		expected  int64
		bitlength int
	}{
		{"255", 10, 255, 8},
		{"256", 10, 256, 16},
		{"ff", 16, 255, 8},
		{"1010", 2, 10, 8},
		{"777", 8, 511, 16},
	}

	for _, tt := range tests {
		constant, err := NewIntegerFromLiteral(tt.digits, tt.base)
		if err != nil {
			t.Fatalf("literal %q base %d raised an error: %v", tt.digits, tt.base, err)
		}
		if constant.Value.Int64() != tt.expected {
			t.Errorf("literal %q - got: %s, want: %d", tt.digits, constant.Value, tt.expected)
		}
		if constant.Bitlength != tt.bitlength {
			t.Errorf("literal %q bitlength - got: %d, want: %d", tt.digits, constant.Bitlength, tt.bitlength)
		}
		if constant.IsSigned {
			t.Errorf("literal %q must be unsigned", tt.digits)
		}
	}
}

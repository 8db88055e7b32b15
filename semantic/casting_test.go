package semantic

import (
	"testing"
)

func TestValidateCasting(t *testing.T) {
	enum := Type{Variant: VariantEnumeration, Identifier: "Dir", Bitlength: 8}

	tests := []struct {
		name     string
		from     Type
		to       Type
		expected string // empty means the cast is permitted
	}{
		{"identity", IntegerUnsigned(8), IntegerUnsigned(8), ""},
		{"unsigned widening", IntegerUnsigned(8), IntegerUnsigned(16), ""},
		{"unsigned to signed widening", IntegerUnsigned(8), IntegerSigned(16), ""},
		{"signed widening", IntegerSigned(8), IntegerSigned(248), ""},
		{"signed to unsigned same width", IntegerSigned(64), IntegerUnsigned(64), ""},
		{"unsigned to field", IntegerUnsigned(248), FieldScalar(), ""},
		{"signed to field", IntegerSigned(8), FieldScalar(), ""},
		{"enum to unsigned", enum, IntegerUnsigned(8), ""},
		{"enum to field", enum, FieldScalar(), ""},
		{"boolean identity", BooleanType(), BooleanType(), ""},

		{"narrowing", IntegerUnsigned(16), IntegerUnsigned(8), KindDataLossPossible},
		{"source too wide", IntegerUnsigned(248), IntegerSigned(248), KindDataLossPossible},
		{"integer to boolean", IntegerUnsigned(8), BooleanType(), KindToInvalidType},
		{"field to integer", FieldScalar(), IntegerUnsigned(8), KindToInvalidType},
		{"boolean to integer", BooleanType(), IntegerUnsigned(8), KindFromInvalidType},
		{"array cast", ArrayOf(BooleanType(), 4), IntegerUnsigned(8), KindFromInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCasting(tt.from, tt.to)
			if tt.expected == "" {
				if err != nil {
					t.Fatalf("cast %s -> %s raised an error: %v", tt.from, tt.to, err)
				}
				return
			}
			assertKind(t, err, tt.expected)
		})
	}
}

// cast composition: (T1 as T2) as T3 is accepted iff both hops are
func TestCastComposition(t *testing.T) {
	chains := []struct {
		first, second, third Type
		accepted             bool
	}{
		{IntegerUnsigned(8), IntegerUnsigned(16), IntegerUnsigned(32), true},
		{IntegerUnsigned(8), IntegerSigned(16), FieldScalar(), true},
		{IntegerUnsigned(16), IntegerUnsigned(8), IntegerUnsigned(32), false},
		{IntegerUnsigned(8), FieldScalar(), IntegerUnsigned(16), false},
	}

	for _, chain := range chains {
		firstHop := ValidateCasting(chain.first, chain.second)
		secondHop := ValidateCasting(chain.second, chain.third)
		accepted := firstHop == nil && secondHop == nil
		if accepted != chain.accepted {
			t.Errorf("(%s as %s) as %s - got accepted=%v, want %v",
				chain.first, chain.second, chain.third, accepted, chain.accepted)
		}
	}
}

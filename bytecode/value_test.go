package bytecode

import (
	"math/big"
	"strings"
	"testing"
)

func TestParseValueScalars(t *testing.T) {
	tests := []struct {
		name     string
		dataType Type
		raw      string
		expected string
	}{
		{"unsigned", ScalarDataType(IntegerType(false, 8)), `"255"`, "255"},
		{"signed negative", ScalarDataType(IntegerType(true, 8)), `"-128"`, "-128"},
		{"field", ScalarDataType(FieldType()), `"12345678901234567890"`, "12345678901234567890"},
		{"number form", ScalarDataType(IntegerType(false, 16)), `1000`, "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat, err := ParseValueJSON(tt.dataType, []byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseValueJSON raised an error: %v", err)
			}
			if len(flat) != 1 || flat[0].String() != tt.expected {
				t.Errorf("parsed cells - got: %v, want [%s]", flat, tt.expected)
			}
		})
	}
}

func TestParseValueBoolean(t *testing.T) {
	flat, err := ParseValueJSON(ScalarDataType(BooleanType()), []byte(`true`))
	if err != nil {
		t.Fatalf("ParseValueJSON raised an error: %v", err)
	}
	if flat[0].Int64() != 1 {
		t.Errorf("boolean cell - got: %s, want 1", flat[0])
	}
}

func TestParseValueOverflowRejected(t *testing.T) {
	// oversized decimal strings are rejected, never silently truncated
	tests := []struct {
		name     string
		dataType Type
		raw      string
	}{
		{"u8 overflow", ScalarDataType(IntegerType(false, 8)), `"256"`},
		{"i8 overflow", ScalarDataType(IntegerType(true, 8)), `"-129"`},
		{"negative unsigned", ScalarDataType(IntegerType(false, 8)), `"-1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValueJSON(tt.dataType, []byte(tt.raw))
			if err == nil {
				t.Fatal("overflowing value was not rejected")
			}
			if !strings.Contains(err.Error(), "overflows") {
				t.Errorf("error - got: %q, want an overflow message", err)
			}
		})
	}
}

func TestParseValueStructure(t *testing.T) {
	dataType := StructureType([]Field{
		{Name: "a", Type: ScalarDataType(IntegerType(false, 8))},
		{Name: "b", Type: ScalarDataType(IntegerType(false, 8))},
	})
	flat, err := ParseValueJSON(dataType, []byte(`{"b": "7", "a": "3"}`))
	if err != nil {
		t.Fatalf("ParseValueJSON raised an error: %v", err)
	}
	// flattening follows the declared field order, not the JSON key order
	if flat[0].Int64() != 3 || flat[1].Int64() != 7 {
		t.Errorf("flattened cells - got: %v, want [3 7]", flat)
	}

	_, err = ParseValueJSON(dataType, []byte(`{"a": "3"}`))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("missing field - got: %v, want a missing-field error", err)
	}
}

func TestParseValueEnumeration(t *testing.T) {
	dataType := EnumerationType(8, []*big.Int{big.NewInt(0), big.NewInt(1)})

	flat, err := ParseValueJSON(dataType, []byte(`"1"`))
	if err != nil {
		t.Fatalf("ParseValueJSON raised an error: %v", err)
	}
	if flat[0].Int64() != 1 {
		t.Errorf("enum cell - got: %s, want 1", flat[0])
	}

	_, err = ParseValueJSON(dataType, []byte(`"2"`))
	if err == nil || !strings.Contains(err.Error(), "variant") {
		t.Errorf("invalid variant - got: %v, want a variant error", err)
	}
}

func TestRenderValuePreservesFieldOrder(t *testing.T) {
	dataType := StructureType([]Field{
		{Name: "zulu", Type: ScalarDataType(IntegerType(false, 8))},
		{Name: "alpha", Type: ScalarDataType(BooleanType())},
		{Name: "mike", Type: ScalarDataType(IntegerType(false, 16))},
	})
	rendered, err := RenderValueJSON(dataType, []*big.Int{
		big.NewInt(9), big.NewInt(1), big.NewInt(300),
	})
	if err != nil {
		t.Fatalf("RenderValueJSON raised an error: %v", err)
	}
	expected := `{"zulu":"9","alpha":true,"mike":"300"}`
	if string(rendered) != expected {
		t.Errorf("rendered JSON - got: %s, want: %s", rendered, expected)
	}
}

func TestValueRoundTrip(t *testing.T) {
	dataType := StructureType([]Field{
		{Name: "flags", Type: ArrayType(ScalarDataType(BooleanType()), 2)},
		{Name: "pair", Type: TupleType([]Type{
			ScalarDataType(IntegerType(false, 8)),
			ScalarDataType(IntegerType(true, 8)),
		})},
	})
	input := `{"flags":[true,false],"pair":["7","-3"]}`

	flat, err := ParseValueJSON(dataType, []byte(input))
	if err != nil {
		t.Fatalf("ParseValueJSON raised an error: %v", err)
	}
	rendered, err := RenderValueJSON(dataType, flat)
	if err != nil {
		t.Fatalf("RenderValueJSON raised an error: %v", err)
	}
	if string(rendered) != input {
		t.Errorf("round trip - got: %s, want: %s", rendered, input)
	}
}

func TestTypeSizes(t *testing.T) {
	tests := []struct {
		dataType Type
		expected int
	}{
		{UnitType(), 0},
		{ScalarDataType(FieldType()), 1},
		{ArrayType(ScalarDataType(BooleanType()), 8), 8},
		{TupleType([]Type{ScalarDataType(BooleanType()), ScalarDataType(FieldType())}), 2},
		{StructureType([]Field{
			{Name: "a", Type: ArrayType(ScalarDataType(IntegerType(false, 8)), 3)},
			{Name: "b", Type: ScalarDataType(BooleanType())},
		}), 4},
	}
	for _, tt := range tests {
		if got := tt.dataType.SizeInCells(); got != tt.expected {
			t.Errorf("SizeInCells(%s) - got: %d, want: %d", tt.dataType, got, tt.expected)
		}
	}
}

package generator

import (
	"testing"

	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/token"
)

func TestBuilderEmitAndAddress(t *testing.T) {
	builder := New()

	if builder.Address() != 0 {
		t.Errorf("initial address - got: %d, want 0", builder.Address())
	}
	first := builder.Emit(bytecode.NoOperation{})
	second := builder.Emit(bytecode.EndIf{})
	if first != 0 || second != 1 {
		t.Errorf("emitted addresses - got: %d and %d, want 0 and 1", first, second)
	}
	if builder.Address() != 2 {
		t.Errorf("next address - got: %d, want 2", builder.Address())
	}
}

func TestBuilderLocationDeduplicates(t *testing.T) {
	builder := New()

	builder.Location(token.Location{Line: 3, Column: 1})
	builder.Location(token.Location{Line: 3, Column: 1})
	builder.Location(token.Location{Line: 3, Column: 5})
	builder.Location(token.Location{Line: 4, Column: 5})

	expected := []bytecode.Instruction{
		bytecode.LineMarker{Line: 3},
		bytecode.ColumnMarker{Column: 1},
		bytecode.ColumnMarker{Column: 5},
		bytecode.LineMarker{Line: 4},
		bytecode.ColumnMarker{Column: 5},
	}
	instructions := builder.Instructions()
	if len(instructions) != len(expected) {
		t.Fatalf("marker count - got: %d, want %d: %v", len(instructions), len(expected), instructions)
	}
	for i := range expected {
		if instructions[i] != expected[i] {
			t.Errorf("marker %d - got: %#v, want: %#v", i, instructions[i], expected[i])
		}
	}
}

func TestBuilderPatch(t *testing.T) {
	builder := New()
	site := builder.Emit(bytecode.Call{Address: 0, InputSize: 1})
	builder.Emit(bytecode.Return{OutputSize: 0})

	builder.Patch(site, bytecode.Call{Address: 7, InputSize: 1})

	patched, ok := builder.Instructions()[site].(bytecode.Call)
	if !ok || patched.Address != 7 {
		t.Errorf("patched call - got: %#v, want address 7", builder.Instructions()[site])
	}
}

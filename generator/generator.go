// Package generator flattens analyzed statements into the linear bytecode
// instruction stream. The semantic analyzer drives a Builder while walking
// the typed tree; the builder owns instruction layout concerns: location
// markers, address bookkeeping and call patching.
package generator

import (
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/token"
)

// Builder accumulates the instruction stream of one application.
type Builder struct {
	instructions []bytecode.Instruction

	lastLine   int
	lastColumn int
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{
		instructions: []bytecode.Instruction{},
	}
}

// Emit appends an instruction and returns its address.
func (builder *Builder) Emit(instruction bytecode.Instruction) int {
	builder.instructions = append(builder.instructions, instruction)
	return len(builder.instructions) - 1
}

// Address returns the address the next emitted instruction will occupy.
func (builder *Builder) Address() int {
	return len(builder.instructions)
}

// Patch replaces the instruction at the given address. It is used to fix up
// forward calls once the callee's address is known.
func (builder *Builder) Patch(address int, instruction bytecode.Instruction) {
	builder.instructions[address] = instruction
}

// Location emits line/column markers when the current source location
// changes. Markers carry no stack effect; the VM uses them for error
// attribution.
func (builder *Builder) Location(location token.Location) {
	if location.Line != 0 && location.Line != builder.lastLine {
		builder.Emit(bytecode.LineMarker{Line: location.Line})
		builder.lastLine = location.Line
		builder.lastColumn = 0
	}
	if location.Column != 0 && location.Column != builder.lastColumn {
		builder.Emit(bytecode.ColumnMarker{Column: location.Column})
		builder.lastColumn = location.Column
	}
}

// Function emits a function marker at the start of a function body.
func (builder *Builder) Function(name string) {
	builder.Emit(bytecode.FunctionMarker{Function: name})
}

// Instructions returns the built instruction stream.
func (builder *Builder) Instructions() []bytecode.Instruction {
	return builder.instructions
}

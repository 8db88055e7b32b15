package semantic

import (
	"strings"
	"testing"

	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/lexer"
	"github.com/ReggieRumsfeld/zinc/parser"
)

func analyzeSource(t *testing.T, source string) (*bytecode.Application, error) {
	t.Helper()
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexing raised an error: %v", err)
	}
	statements, err := parser.Make(tokens).Parse()
	if err != nil {
		t.Fatalf("parsing raised an error: %v", err)
	}
	return Analyze("test", statements)
}

func assertAnalysisKind(t *testing.T, err error, expected string) {
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
	if typed.Location.Line == 0 {
		t.Errorf("error carries no source location: %v", typed)
	}
}

func TestAnalyzeCircuit(t *testing.T) {
	application, err := analyzeSource(t, "fn main() -> u8 { 2 + 3 * 4 }")
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}
	if application.Kind != bytecode.KindCircuit {
		t.Errorf("kind - got: %s, want circuit", application.Kind)
	}
	method, err := application.Method("main")
	if err != nil {
		t.Fatalf("method lookup raised an error: %v", err)
	}
	if method.OutputType.Scalar.Bitlength != 8 {
		t.Errorf("output type - got: %+v", method.OutputType)
	}

	// the whole body folds: exactly one push survives
	pushes := 0
	for _, instruction := range application.Instructions {
		if push, ok := instruction.(bytecode.Push); ok {
			pushes++
			if push.Value.Int64() != 14 {
				t.Errorf("folded value - got: %s, want 14", push.Value)
			}
		}
	}
	if pushes != 1 {
		t.Errorf("push count - got: %d, want 1", pushes)
	}
}

func TestAnalyzeContract(t *testing.T) {
	source := `
contract Counter {
    balance: u64;

    pub fn deposit(mut self, amount: u64) {
        self.balance = self.balance + amount;
    }
}
`
	application, err := analyzeSource(t, source)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}
	if application.Kind != bytecode.KindContract {
		t.Fatalf("kind - got: %s, want contract", application.Kind)
	}
	if len(application.Storage) != 1 || application.Storage[0].Name != "balance" {
		t.Errorf("storage schema - got: %+v", application.Storage)
	}
	method, err := application.Method("deposit")
	if err != nil {
		t.Fatalf("method lookup raised an error: %v", err)
	}
	if !method.IsMutable {
		t.Error("deposit must be marked mutable")
	}

	var loads, stores int
	for _, instruction := range application.Instructions {
		switch instruction.(type) {
		case bytecode.StorageLoad:
			loads++
		case bytecode.StorageStore:
			stores++
		}
	}
	if loads != 1 || stores != 1 {
		t.Errorf("storage access - got %d loads and %d stores, want 1 and 1", loads, stores)
	}
}

func TestAnalyzeBranchShape(t *testing.T) {
	source := `
fn main(c: bool) -> u8 {
    if c { 1 } else { 2 }
}
`
	application, err := analyzeSource(t, source)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}

	sequence := []string{}
	for _, instruction := range application.Instructions {
		switch instruction.(type) {
		case bytecode.If, bytecode.Else, bytecode.EndIf:
			sequence = append(sequence, bytecode.Name(instruction))
		}
	}
	expected := "if else endif"
	if strings.Join(sequence, " ") != expected {
		t.Errorf("branch markers - got: %q, want: %q", strings.Join(sequence, " "), expected)
	}
}

func TestAnalyzeLoopShape(t *testing.T) {
	source := `
fn main(n: u8) -> u8 {
    let mut s = 0u8;
    for i in 0..4 { s = s + n; };
    s
}
`
	application, err := analyzeSource(t, source)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}

	for _, instruction := range application.Instructions {
		if begin, ok := instruction.(bytecode.LoopBegin); ok {
			if begin.Iterations != 4 {
				t.Errorf("loop iterations - got: %d, want 4", begin.Iterations)
			}
			return
		}
	}
	t.Error("no LoopBegin emitted")
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			"overflow casting on declared type",
			"fn main() { let x: u8 = 256; }",
			KindOverflowCasting,
		},
		{
			"negated literal cast to unsigned",
			"fn main() { let x = -1u8; }",
			KindOverflowCasting,
		},
		{
			"compile-time zero division",
			"fn main() -> u8 { 10 / 0 }",
			KindZeroDivision,
		},
		{
			"bitwise on field",
			"fn main(a: field, b: field) -> field { a | b }",
			KindForbiddenFieldBitwise,
		},
		{
			"field division",
			"fn main(a: field, b: field) -> field { a / b }",
			KindForbiddenFieldDivision,
		},
		{
			"branch type mismatch",
			"fn main(c: bool) -> u8 { if c { 1 } else { true } }",
			KindBranchTypesMismatch,
		},
		{
			"missing else with value",
			"fn main(c: bool) -> u8 { if c { 1 } }",
			KindBranchTypesMismatch,
		},
		{
			"unresolved identifier",
			"fn main() -> u8 { missing }",
			KindUnresolvedIdentifier,
		},
		{
			"duplicate identifier",
			"fn main() { let x = 1; let x = 2; }",
			KindDuplicateIdentifier,
		},
		{
			"assignment to immutable",
			"fn main() { let x = 1; x = 2; }",
			KindNotMutable,
		},
		{
			"unbounded range",
			"fn main(n: u8) { for i in 0..n { i; } }",
			KindConstantExpected,
		},
		{
			"return type mismatch",
			"fn main() -> bool { 5 }",
			KindTypesMismatch + "Return",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzeSource(t, tt.source)
			assertAnalysisKind(t, err, tt.expected)
		})
	}
}

func TestAnalyzeEnumComparison(t *testing.T) {
	accepted := `
enum Dir { N = 0, S = 1 }

fn main() -> bool {
    let x = Dir::N;
    let y: Dir = x;
    x == y
}
`
	if _, err := analyzeSource(t, accepted); err != nil {
		t.Fatalf("same-enum comparison raised an error: %v", err)
	}

	rejected := `
enum Dir { N = 0, S = 1 }

fn main() -> bool {
    let x = Dir::N;
    x == 0u8
}
`
	_, err := analyzeSource(t, rejected)
	assertAnalysisKind(t, err, KindTypesMismatch+"Equals")

	crossEnum := `
enum A { V1 = 0 }
enum B { V1 = 0 }

fn main() -> bool {
    let x = A::V1;
    let y = B::V1;
    x == y
}
`
	_, err = analyzeSource(t, crossEnum)
	assertAnalysisKind(t, err, KindTypesMismatch+"Equals")
}

func TestAnalyzeStdlibBuiltins(t *testing.T) {
	accepted := `
fn main(bits: [bool; 8]) -> i8 {
    std::convert::from_bits_signed(bits)
}
`
	application, err := analyzeSource(t, accepted)
	if err != nil {
		t.Fatalf("builtin call raised an error: %v", err)
	}
	found := false
	for _, instruction := range application.Instructions {
		if call, ok := instruction.(bytecode.CallLibrary); ok {
			found = true
			if call.Identifier != bytecode.LibraryFromBitsSigned {
				t.Errorf("library identifier - got: %s", call.Identifier)
			}
			if call.InputSize != 8 || call.OutputSize != 1 {
				t.Errorf("library sizes - got input=%d output=%d", call.InputSize, call.OutputSize)
			}
		}
	}
	if !found {
		t.Error("no CallLibrary emitted")
	}

	badWidth := `
fn main(bits: [bool; 7]) -> i8 {
    std::convert::from_bits_signed(bits)
}
`
	_, err = analyzeSource(t, badWidth)
	assertAnalysisKind(t, err, KindArgumentType)

	badCount := `
fn main(bits: [bool; 8]) -> i8 {
    std::convert::from_bits_signed(bits, bits)
}
`
	_, err = analyzeSource(t, badCount)
	assertAnalysisKind(t, err, KindArgumentCount)
}

func TestAnalyzeLiteralAdaptation(t *testing.T) {
	// the untyped literal 1 adapts to u64 next to a u64 operand
	source := `
fn main(x: u64) -> u64 {
    x + 1
}
`
	application, err := analyzeSource(t, source)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}
	for _, instruction := range application.Instructions {
		if push, ok := instruction.(bytecode.Push); ok {
			if push.Type.Bitlength != 64 {
				t.Errorf("adapted literal bitlength - got: %d, want 64", push.Type.Bitlength)
			}
		}
	}
}

func TestAnalyzeFunctionCalls(t *testing.T) {
	source := `
fn double(x: u8) -> u8 { x + x }

fn main(n: u8) -> u8 { double(double(n)) }
`
	application, err := analyzeSource(t, source)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}

	var doubleAddress int
	calls := 0
	for _, instruction := range application.Instructions {
		if call, ok := instruction.(bytecode.Call); ok {
			calls++
			doubleAddress = call.Address
			if call.InputSize != 1 {
				t.Errorf("call input size - got: %d, want 1", call.InputSize)
			}
		}
	}
	if calls != 2 {
		t.Fatalf("call count - got: %d, want 2", calls)
	}
	if doubleAddress < 0 || doubleAddress >= len(application.Instructions) {
		t.Errorf("patched call address %d is out of bounds", doubleAddress)
	}
}

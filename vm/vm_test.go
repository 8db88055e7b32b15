package vm

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/lexer"
	"github.com/ReggieRumsfeld/zinc/parser"
	"github.com/ReggieRumsfeld/zinc/semantic"
)

func compileSource(t *testing.T, source string) *bytecode.Application {
	t.Helper()
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexing raised an error: %v", err)
	}
	statements, err := parser.Make(tokens).Parse()
	if err != nil {
		t.Fatalf("parsing raised an error: %v", err)
	}
	application, err := semantic.Analyze("test", statements)
	if err != nil {
		t.Fatalf("analysis raised an error: %v", err)
	}
	return application
}

func testRunner() *Runner {
	return NewRunner(zerolog.Nop())
}

func assertRuntimeKind(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a %s error, got nil", expected)
	}
	typed, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("expected a RuntimeError, got %T: %v", err, err)
	}
	if typed.Kind != expected {
		t.Errorf("error kind - got: %s, want: %s (%s)", typed.Kind, expected, typed.Message)
	}
}

func TestRunConstantExpression(t *testing.T) {
	application := compileSource(t, "fn main() -> u8 { 2 + 3 * 4 }")

	output, err := testRunner().Run(application, "main", []byte(`{}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"14"` {
		t.Errorf("output - got: %s, want \"14\"", output.Result)
	}
	if output.ConstraintCount == 0 {
		t.Error("the run emitted no constraints")
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
}

func TestRunArithmeticOnInputs(t *testing.T) {
	application := compileSource(t, "fn main(a: u8, b: u8) -> u8 { a * b + a }")

	output, err := testRunner().Run(application, "main", []byte(`{"a": "5", "b": "6"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"35"` {
		t.Errorf("output - got: %s, want \"35\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
	if output.InputCount != 2 {
		t.Errorf("public inputs - got: %d, want 2", output.InputCount)
	}
}

func TestRunRequire(t *testing.T) {
	source := `
fn main(a: u8, b: u8) -> u8 {
    require(a < b, "a must be less than b");
    b - a
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.Run(application, "main", []byte(`{"a": "3", "b": "7"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"4"` {
		t.Errorf("output - got: %s, want \"4\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}

	_, err = runner.Run(application, "main", []byte(`{"a": "7", "b": "3"}`))
	assertRuntimeKind(t, err, KindRequireFailed)
	if !strings.Contains(err.Error(), "a must be less than b") {
		t.Errorf("error - got: %q, want the require message", err)
	}
}

func TestRunBoundedLoop(t *testing.T) {
	source := `
fn main(n: u8) -> u8 {
    let mut s = 0u8;
    for i in 0..4 {
        s = s + n;
    };
    s
}
`
	application := compileSource(t, source)

	output, err := testRunner().Run(application, "main", []byte(`{"n": "5"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"20"` {
		t.Errorf("output - got: %s, want \"20\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
}

func TestRunFromBitsSigned(t *testing.T) {
	source := `
fn main(bits: [bool; 8]) -> i8 {
    std::convert::from_bits_signed(bits)
}
`
	application := compileSource(t, source)

	output, err := testRunner().Run(application, "main",
		[]byte(`{"bits": [true,true,true,true,true,true,true,true]}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"-1"` {
		t.Errorf("output - got: %s, want \"-1\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
}

func TestRunToBitsRoundTrip(t *testing.T) {
	source := `
fn main(x: u8) -> u8 {
    std::convert::from_bits_unsigned(std::convert::to_bits(x))
}
`
	application := compileSource(t, source)

	output, err := testRunner().Run(application, "main", []byte(`{"x": "173"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"173"` {
		t.Errorf("output - got: %s, want \"173\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
}

func TestRunConditionalSelectsBranch(t *testing.T) {
	source := `
fn main(c: bool, a: u8, b: u8) -> u8 {
    if c { a } else { b }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.Run(application, "main", []byte(`{"c": true, "a": "11", "b": "22"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"11"` {
		t.Errorf("then branch - got: %s, want \"11\"", output.Result)
	}

	output, err = runner.Run(application, "main", []byte(`{"c": false, "a": "11", "b": "22"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"22"` {
		t.Errorf("else branch - got: %s, want \"22\"", output.Result)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}
}

func TestRunBranchMergesLocals(t *testing.T) {
	source := `
fn main(c: bool) -> u8 {
    let mut x = 1u8;
    if c {
        x = 10;
    } else {
        x = 20;
    };
    x
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.Run(application, "main", []byte(`{"c": true}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"10"` {
		t.Errorf("then branch - got: %s, want \"10\"", output.Result)
	}

	output, err = runner.Run(application, "main", []byte(`{"c": false}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"20"` {
		t.Errorf("else branch - got: %s, want \"20\"", output.Result)
	}
}

func TestRunEnumEquality(t *testing.T) {
	source := `
enum Dir { N = 0, S = 1 }

fn main() -> bool {
    let x = Dir::N;
    let y: Dir = x;
    x == y
}
`
	application := compileSource(t, source)

	output, err := testRunner().Run(application, "main", []byte(`{}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `true` {
		t.Errorf("output - got: %s, want true", output.Result)
	}
}

func TestRunMatch(t *testing.T) {
	source := `
enum Dir { N = 0, S = 1 }

fn main(d: Dir) -> u8 {
    match d {
        Dir::N => 10,
        _ => 20,
    }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.Run(application, "main", []byte(`{"d": "0"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"10"` {
		t.Errorf("matched arm - got: %s, want \"10\"", output.Result)
	}

	output, err = runner.Run(application, "main", []byte(`{"d": "1"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"20"` {
		t.Errorf("wildcard arm - got: %s, want \"20\"", output.Result)
	}
}

func TestRunFunctionCall(t *testing.T) {
	source := `
fn double(x: u8) -> u8 { x + x }

fn main(n: u8) -> u8 { double(double(n)) }
`
	application := compileSource(t, source)

	output, err := testRunner().Run(application, "main", []byte(`{"n": "3"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"12"` {
		t.Errorf("output - got: %s, want \"12\"", output.Result)
	}
}

func TestRunIntegerOverflowAtRuntime(t *testing.T) {
	application := compileSource(t, "fn main(a: u8, b: u8) -> u8 { b - a }")

	_, err := testRunner().Run(application, "main", []byte(`{"a": "7", "b": "3"}`))
	assertRuntimeKind(t, err, KindIntegerOverflow)
}

func TestRunDivisionByZeroWitness(t *testing.T) {
	application := compileSource(t, "fn main(a: u8, b: u8) -> u8 { a / b }")

	_, err := testRunner().Run(application, "main", []byte(`{"a": "10", "b": "0"}`))
	assertRuntimeKind(t, err, KindDivisionByZero)
}

func TestRunRuntimeIndex(t *testing.T) {
	source := `
fn main(values: [u8; 4], i: u8) -> u8 {
    values[i]
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.Run(application, "main",
		[]byte(`{"values": ["9", "8", "7", "6"], "i": "2"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"7"` {
		t.Errorf("output - got: %s, want \"7\"", output.Result)
	}

	_, err = runner.Run(application, "main",
		[]byte(`{"values": ["9", "8", "7", "6"], "i": "4"}`))
	assertRuntimeKind(t, err, KindIndexOutOfBounds)
}

// constraint determinism: two runs over the same bytecode and input build
// identical constraint systems
func TestRunConstraintDeterminism(t *testing.T) {
	source := `
fn main(a: u8, b: u8) -> u8 {
    let mut s = 0u8;
    for i in 0..3 {
        s = s + a;
    };
    if a < b { s } else { b }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	first, err := runner.Run(application, "main", []byte(`{"a": "2", "b": "50"}`))
	if err != nil {
		t.Fatalf("first run raised an error: %v", err)
	}
	second, err := runner.Run(application, "main", []byte(`{"a": "2", "b": "50"}`))
	if err != nil {
		t.Fatalf("second run raised an error: %v", err)
	}
	if first.ConstraintCount != second.ConstraintCount {
		t.Errorf("constraint counts differ: %d vs %d", first.ConstraintCount, second.ConstraintCount)
	}
	if first.InputCount != second.InputCount {
		t.Errorf("input counts differ: %d vs %d", first.InputCount, second.InputCount)
	}
}

func TestRunBytecodeRoundTrip(t *testing.T) {
	application := compileSource(t, "fn main(a: u8) -> u8 { a + 1 }")

	encoded, err := bytecode.Encode(application)
	if err != nil {
		t.Fatalf("Encode raised an error: %v", err)
	}
	decoded, err := bytecode.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode raised an error: %v", err)
	}

	output, err := testRunner().Run(decoded, "main", []byte(`{"a": "41"}`))
	if err != nil {
		t.Fatalf("run raised an error: %v", err)
	}
	if string(output.Result) != `"42"` {
		t.Errorf("output - got: %s, want \"42\"", output.Result)
	}
}

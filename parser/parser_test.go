package parser

import (
	"strings"
	"testing"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/lexer"
	"github.com/ReggieRumsfeld/zinc/token"
)

func parseSource(t *testing.T, input string) []ast.Stmt {
	t.Helper()
	tokens, err := lexer.New(input).Scan()
	if err != nil {
		t.Fatalf("lexing %q raised an error: %v", input, err)
	}
	statements, err := Make(tokens).Parse()
	if err != nil {
		t.Fatalf("parsing %q raised an error: %v", input, err)
	}
	return statements
}

func parseExpressionSource(t *testing.T, input string) ast.Expression {
	t.Helper()
	tokens, err := lexer.New(input).Scan()
	if err != nil {
		t.Fatalf("lexing %q raised an error: %v", input, err)
	}
	expression, err := Make(tokens).ParseExpression()
	if err != nil {
		t.Fatalf("parsing %q raised an error: %v", input, err)
	}
	return expression
}

func TestLetStatement(t *testing.T) {
	statements := parseSource(t, "fn main() { let mut x: u8 = 5; }")
	fn, ok := statements[0].(ast.FnStmt)
	if !ok {
		t.Fatalf("expected a function statement, got %T", statements[0])
	}
	let, ok := fn.Body.Statements[0].(ast.LetStmt)
	if !ok {
		t.Fatalf("expected a let statement, got %T", fn.Body.Statements[0])
	}
	if let.Identifier != "x" || !let.Mutable {
		t.Errorf("let statement - got: %+v", let)
	}
	if let.Type == nil || let.Type.Variant != ast.TypeIntegerUnsigned || let.Type.Bitlength != 8 {
		t.Errorf("let declared type - got: %+v", let.Type)
	}
}

func TestFunctionSignature(t *testing.T) {
	statements := parseSource(t, "pub fn add(a: u8, b: u8) -> u8 { a }")
	fn, ok := statements[0].(ast.FnStmt)
	if !ok {
		t.Fatalf("expected a function statement, got %T", statements[0])
	}
	if !fn.IsPublic || fn.Identifier != "add" {
		t.Errorf("function header - got: %+v", fn)
	}
	if len(fn.Arguments) != 2 || fn.Arguments[1].Identifier != "b" {
		t.Errorf("function arguments - got: %+v", fn.Arguments)
	}
	if fn.ReturnType == nil || fn.ReturnType.Variant != ast.TypeIntegerUnsigned {
		t.Errorf("function return type - got: %+v", fn.ReturnType)
	}
	if fn.Body.Result == nil {
		t.Error("the block result expression was not captured")
	}
}

// rpnOperators extracts the operator sequence of an expression.
func rpnOperators(expression ast.Expression) []ast.Operator {
	operators := []ast.Operator{}
	for _, expressionElement := range expression.Elements {
		if operator, ok := expressionElement.Object.(ast.OperatorElement); ok {
			operators = append(operators, operator.Operator)
		}
	}
	return operators
}

func TestExpressionRPNOrder(t *testing.T) {
	// operands first, operators after, evaluation order explicit
	expression := parseExpressionSource(t, "2 + 3 * 4")

	if len(expression.Elements) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(expression.Elements))
	}
	for i, expectedDigits := range []string{"2", "3", "4"} {
		literal, ok := expression.Elements[i].Object.(ast.IntegerLiteral)
		if !ok || literal.Digits != expectedDigits {
			t.Errorf("element %d - got: %+v, want literal %s", i, expression.Elements[i].Object, expectedDigits)
		}
	}

	operators := rpnOperators(expression)
	expected := []ast.Operator{ast.OperatorMultiplication, ast.OperatorAddition}
	for i := range expected {
		if operators[i] != expected[i] {
			t.Errorf("operator %d - got: %s, want: %s", i, operators[i], expected[i])
		}
	}
}

func TestOperatorLocations(t *testing.T) {
	expression := parseExpressionSource(t, "42 * 228")

	operatorElement := expression.Elements[2]
	if _, ok := operatorElement.Object.(ast.OperatorElement); !ok {
		t.Fatalf("expected the operator element last, got %+v", operatorElement.Object)
	}
	if operatorElement.Location != (token.Location{Line: 1, Column: 4}) {
		t.Errorf("operator location - got: %v, want 1:4", operatorElement.Location)
	}
	if expression.Location != (token.Location{Line: 1, Column: 1}) {
		t.Errorf("expression location - got: %v, want 1:1", expression.Location)
	}
}

func TestPrecedenceLadder(t *testing.T) {
	tests := []struct {
		input    string
		expected []ast.Operator
	}{
		{"a || b && c", []ast.Operator{ast.OperatorAnd, ast.OperatorOr}},
		{"a | b ^ c & d", []ast.Operator{ast.OperatorBitwiseAnd, ast.OperatorBitwiseXor, ast.OperatorBitwiseOr}},
		{"a << b + c", []ast.Operator{ast.OperatorAddition, ast.OperatorBitwiseShiftLeft}},
		{"a == b | c", []ast.Operator{ast.OperatorBitwiseOr, ast.OperatorEquals}},
		{"-a as u8", []ast.Operator{ast.OperatorNegation, ast.OperatorCasting}},
		{"a * b as field", []ast.Operator{ast.OperatorCasting, ast.OperatorMultiplication}},
		{"x.y[0]", []ast.Operator{ast.OperatorField, ast.OperatorIndex}},
		{"std::convert::to_bits(a)", []ast.Operator{ast.OperatorPath, ast.OperatorPath, ast.OperatorCall}},
		{"0 .. 4", []ast.Operator{ast.OperatorRange}},
	}

	for _, tt := range tests {
		expression := parseExpressionSource(t, tt.input)
		operators := rpnOperators(expression)
		if len(operators) != len(tt.expected) {
			t.Errorf("%q - got %d operators %v, want %d", tt.input, len(operators), operators, len(tt.expected))
			continue
		}
		for i := range tt.expected {
			if operators[i] != tt.expected[i] {
				t.Errorf("%q operator %d - got: %s, want: %s", tt.input, i, operators[i], tt.expected[i])
			}
		}
	}
}

func TestGroupingChangesOrder(t *testing.T) {
	expression := parseExpressionSource(t, "(2 + 3) * 4")
	operators := rpnOperators(expression)
	expected := []ast.Operator{ast.OperatorAddition, ast.OperatorMultiplication}
	for i := range expected {
		if operators[i] != expected[i] {
			t.Errorf("operator %d - got: %s, want: %s", i, operators[i], expected[i])
		}
	}
}

func TestContractStatement(t *testing.T) {
	source := `
contract Counter {
    balance: u64;

    pub fn deposit(mut self, amount: u64) {
        self.balance = self.balance + amount;
    }

    pub fn get(self) -> u64 {
        self.balance
    }
}
`
	statements := parseSource(t, source)
	contract, ok := statements[0].(ast.ContractStmt)
	if !ok {
		t.Fatalf("expected a contract statement, got %T", statements[0])
	}
	if contract.Identifier != "Counter" {
		t.Errorf("contract name - got: %q", contract.Identifier)
	}
	if len(contract.Fields) != 1 || contract.Fields[0].Identifier != "balance" {
		t.Errorf("contract storage - got: %+v", contract.Fields)
	}
	if len(contract.Methods) != 2 {
		t.Fatalf("contract methods - got %d, want 2", len(contract.Methods))
	}
	if !contract.Methods[0].SelfMutable {
		t.Error("deposit must be marked storage-mutating")
	}
	if contract.Methods[1].SelfMutable {
		t.Error("get must not be marked storage-mutating")
	}
}

func TestEnumAndMatch(t *testing.T) {
	source := `
enum Dir { N = 0, S = 1 }

fn main(d: Dir) -> u8 {
    match d {
        Dir::N => 10,
        _ => 20,
    }
}
`
	statements := parseSource(t, source)
	enum, ok := statements[0].(ast.EnumStmt)
	if !ok {
		t.Fatalf("expected an enum statement, got %T", statements[0])
	}
	if len(enum.Variants) != 2 || enum.Variants[1].Identifier != "S" {
		t.Errorf("enum variants - got: %+v", enum.Variants)
	}

	fn := statements[1].(ast.FnStmt)
	match, ok := fn.Body.Result.Elements[0].Object.(ast.MatchOperand)
	if !ok {
		t.Fatalf("expected a match operand, got %+v", fn.Body.Result.Elements[0].Object)
	}
	if len(match.Match.Arms) != 2 {
		t.Fatalf("match arms - got %d, want 2", len(match.Match.Arms))
	}
	if match.Match.Arms[0].Pattern.Variant != ast.PatternPath {
		t.Errorf("first arm pattern - got: %v", match.Match.Arms[0].Pattern.Variant)
	}
	if match.Match.Arms[1].Pattern.Variant != ast.PatternWildcard {
		t.Errorf("second arm pattern - got: %v", match.Match.Arms[1].Pattern.Variant)
	}
}

func TestForLoop(t *testing.T) {
	statements := parseSource(t, "fn main() { for i in 0..4 { i; } }")
	fn := statements[0].(ast.FnStmt)
	loop, ok := fn.Body.Statements[0].(ast.ForStmt)
	if !ok {
		t.Fatalf("expected a for statement, got %T", fn.Body.Statements[0])
	}
	if loop.Identifier != "i" {
		t.Errorf("loop variable - got: %q", loop.Identifier)
	}
	operators := rpnOperators(loop.Range)
	if len(operators) != 1 || operators[0] != ast.OperatorRange {
		t.Errorf("loop range operators - got: %v", operators)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"missing paren", "fn main() { (2 + 3; }", "expected ')'"},
		{"missing semicolon", "fn main() { let x = 1 let y = 2; }", "expected ';'"},
		{"declaration expected", "5 + 5;", "expected a declaration"},
		{"missing variable name", "fn main() { let = 5; }", "expected variable name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := lexer.New(tt.input).Scan()
			if err != nil {
				t.Fatalf("lexing raised an error: %v", err)
			}
			_, err = Make(tokens).Parse()
			if err == nil {
				t.Fatalf("parsing %q did not raise an error", tt.input)
			}
			if _, ok := err.(SyntaxError); !ok {
				t.Errorf("expected a SyntaxError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("error - got: %q, want it to mention %q", err, tt.expected)
			}
		})
	}
}

package lexer

import (
	"strings"
	"testing"

	"github.com/ReggieRumsfeld/zinc/token"
)

// assertTokenTypes compares the scanned token types, ignoring locations.
func assertTokenTypes(t *testing.T, input string, expected []token.TokenType) {
	t.Helper()
	got, err := New(input).Scan()
	if err != nil {
		t.Fatalf("Scan(%q) raised an error: %v", input, err)
	}
	if len(got) != len(expected) {
		t.Fatalf("Scan(%q) produced %d tokens, want %d: %v", input, len(got), len(expected), got)
	}
	for i := range got {
		if got[i].TokenType != expected[i] {
			t.Errorf("Scan(%q) token %d - got: %s, want: %s", input, i, got[i].TokenType, expected[i])
		}
	}
}

func TestOperatorsSuccess(t *testing.T) {
	assertTokenTypes(t, "== != <= >= << >> && || ^^ ..= .. :: -> => + - * / % ~ ! ^ & |", []token.TokenType{
		token.EQUAL_EQUAL,
		token.NOT_EQUAL,
		token.LESS_EQUAL,
		token.LARGER_EQUAL,
		token.SHIFT_LEFT,
		token.SHIFT_RIGHT,
		token.AND_AND,
		token.OR_OR,
		token.XOR_XOR,
		token.RANGE_INC,
		token.RANGE,
		token.PATH,
		token.ARROW,
		token.FAT_ARROW,
		token.ADD,
		token.SUB,
		token.MULT,
		token.DIV,
		token.REM,
		token.TILDE,
		token.BANG,
		token.XOR,
		token.AND,
		token.OR,
		token.EOF,
	})
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	assertTokenTypes(t, "let mut balance fn main contract impl self Self", []token.TokenType{
		token.LET,
		token.MUT,
		token.IDENTIFIER,
		token.FUNC,
		token.IDENTIFIER,
		token.CONTRACT,
		token.IMPL,
		token.SELF,
		token.SELF_BIG,
		token.EOF,
	})
}

func TestIntegerTypeKeywords(t *testing.T) {
	tests := []struct {
		input        string
		expectedType token.TokenType
		expectedBits int
	}{
		{"u8", token.UINT, 8},
		{"u248", token.UINT, 248},
		{"i8", token.SINT, 8},
		{"i64", token.SINT, 64},
	}

	for _, tt := range tests {
		tokens, err := New(tt.input).Scan()
		if err != nil {
			t.Fatalf("Scan(%q) raised an error: %v", tt.input, err)
		}
		if tokens[0].TokenType != tt.expectedType {
			t.Errorf("Scan(%q) - got: %s, want: %s", tt.input, tokens[0].TokenType, tt.expectedType)
		}
		if tokens[0].Base != tt.expectedBits {
			t.Errorf("Scan(%q) bitlength - got: %d, want: %d", tt.input, tokens[0].Base, tt.expectedBits)
		}
	}

	// a malformed width is a plain identifier, not a type keyword
	tokens, err := New("u7 i255 u0").Scan()
	if err != nil {
		t.Fatalf("Scan raised an error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if tokens[i].TokenType != token.IDENTIFIER {
			t.Errorf("token %d - got: %s, want: %s", i, tokens[i].TokenType, token.IDENTIFIER)
		}
	}
}

func TestIntegerLiteralBases(t *testing.T) {
	tests := []struct {
		input          string
		expectedLexeme string
		expectedBase   int
	}{
		{"0", "0", 10},
		{"42", "42", 10},
		{"1_000", "1000", 10},
		{"0b1010", "1010", 2},
		{"0o755", "755", 8},
		{"0xDEAD", "DEAD", 16},
		{"0xdead_beef", "deadbeef", 16},
	}

	for _, tt := range tests {
		tokens, err := New(tt.input).Scan()
		if err != nil {
			t.Fatalf("Scan(%q) raised an error: %v", tt.input, err)
		}
		if tokens[0].TokenType != token.INT {
			t.Fatalf("Scan(%q) - got: %s, want INT", tt.input, tokens[0].TokenType)
		}
		if tokens[0].Lexeme != tt.expectedLexeme {
			t.Errorf("Scan(%q) lexeme - got: %q, want: %q", tt.input, tokens[0].Lexeme, tt.expectedLexeme)
		}
		if tokens[0].Base != tt.expectedBase {
			t.Errorf("Scan(%q) base - got: %d, want: %d", tt.input, tokens[0].Base, tt.expectedBase)
		}
	}
}

func TestIntegerSuffixDesugarsToCast(t *testing.T) {
	assertTokenTypes(t, "1u8", []token.TokenType{
		token.INT,
		token.AS,
		token.UINT,
		token.EOF,
	})
	assertTokenTypes(t, "127i8 + 1", []token.TokenType{
		token.INT,
		token.AS,
		token.SINT,
		token.ADD,
		token.INT,
		token.EOF,
	})
}

func TestCommentsAreSeparators(t *testing.T) {
	input := `let x // trailing comment
/* block
   comment */ = 5;`
	assertTokenTypes(t, input, []token.TokenType{
		token.LET,
		token.IDENTIFIER,
		token.ASSIGN,
		token.INT,
		token.SEMICOLON,
		token.EOF,
	})
}

func TestStringLiteral(t *testing.T) {
	tokens, err := New(`require(x, "balance underflow")`).Scan()
	if err != nil {
		t.Fatalf("Scan raised an error: %v", err)
	}
	var literal *token.Token
	for i := range tokens {
		if tokens[i].TokenType == token.STRING {
			literal = &tokens[i]
		}
	}
	if literal == nil {
		t.Fatal("no string token produced")
	}
	if literal.Lexeme != "balance underflow" {
		t.Errorf("string lexeme - got: %q, want: %q", literal.Lexeme, "balance underflow")
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"unterminated string", `"oops`, "unterminated string"},
		{"unterminated comment", "/* oops", "unterminated block comment"},
		{"invalid binary digit", "0b102", "invalid digit"},
		{"invalid decimal digit", "12ab", "invalid digit"},
		{"prefix without digits", "0x;", "no digits"},
		{"unexpected character", "let $x = 1;", "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.input).Scan()
			if err == nil {
				t.Fatalf("Scan(%q) did not raise an error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Scan(%q) error - got: %q, want it to mention %q", tt.input, err, tt.expected)
			}
		})
	}
}

func TestLocations(t *testing.T) {
	tokens, err := New("let x =\n  42;").Scan()
	if err != nil {
		t.Fatalf("Scan raised an error: %v", err)
	}

	expected := []token.Location{
		{Line: 1, Column: 1},  // let
		{Line: 1, Column: 5},  // x
		{Line: 1, Column: 7},  // =
		{Line: 2, Column: 3},  // 42
		{Line: 2, Column: 5},  // ;
	}
	for i, location := range expected {
		if tokens[i].Location != location {
			t.Errorf("token %d location - got: %v, want: %v", i, tokens[i].Location, location)
		}
	}
}

package token

import (
	"testing"
)

func TestCreateToken(t *testing.T) {
	tests := []struct {
		tokenType      TokenType
		expectedLexeme string
	}{
		{LPA, "("},
		{RPA, ")"},
		{SHIFT_LEFT, "<<"},
		{RANGE_INC, "..="},
		{PATH, "::"},
		{EQUAL_EQUAL, "=="},
		{EOF, ""},
	}

	for _, tt := range tests {
		tok := CreateToken(tt.tokenType, Location{Line: 3, Column: 7})
		if tok.Lexeme != tt.expectedLexeme {
			t.Errorf("CreateToken(%s) lexeme - got: %q, want: %q", tt.tokenType, tok.Lexeme, tt.expectedLexeme)
		}
		if tok.Location.Line != 3 || tok.Location.Column != 7 {
			t.Errorf("CreateToken(%s) location - got: %v", tt.tokenType, tok.Location)
		}
	}
}

func TestKeyWords(t *testing.T) {
	tests := []struct {
		lexeme       string
		expectedType TokenType
	}{
		{"let", LET},
		{"mut", MUT},
		{"fn", FUNC},
		{"contract", CONTRACT},
		{"impl", IMPL},
		{"Self", SELF_BIG},
		{"self", SELF},
		{"field", FIELD},
		{"bool", BOOL},
		{"as", AS},
	}

	for _, tt := range tests {
		tokenType, exists := KeyWords[tt.lexeme]
		if !exists {
			t.Errorf("keyword %q is missing from the keyword table", tt.lexeme)
			continue
		}
		if tokenType != tt.expectedType {
			t.Errorf("keyword %q - got: %s, want: %s", tt.lexeme, tokenType, tt.expectedType)
		}
	}

	if _, exists := KeyWords["u8"]; exists {
		t.Error("integer type keywords must not be in the keyword table")
	}
}

func TestLocationString(t *testing.T) {
	location := Location{Line: 12, Column: 5}
	if location.String() != "12:5" {
		t.Errorf("Location.String() - got: %q, want: %q", location.String(), "12:5")
	}
}

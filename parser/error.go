package parser

import (
	"fmt"

	"github.com/ReggieRumsfeld/zinc/token"
)

// SyntaxError is the error type for all syntax errors in the Parser.
type SyntaxError struct {
	Location token.Location
	Message  string
}

func CreateSyntaxError(location token.Location, message string) SyntaxError {
	return SyntaxError{
		Location: location,
		Message:  message,
	}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax: %s", e.Location, e.Message)
}

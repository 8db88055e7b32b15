// printer.go renders parsed statements as prettified JSON, for debugging
// the tree a source file produces.

package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ReggieRumsfeld/zinc/ast"
)

// PrintASTJSON prints the statements as prettified JSON to standard output
// and returns the rendered text.
func PrintASTJSON(statements []ast.Stmt) (string, error) {
	rendered, err := json.MarshalIndent(statements, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error producing AST JSON: %w", err)
	}
	fmt.Println(string(rendered))
	return string(rendered), nil
}

// WriteASTJSONToFile writes the statements as prettified JSON to a file at
// the given path.
func WriteASTJSONToFile(statements []ast.Stmt, path string) error {
	rendered, err := json.MarshalIndent(statements, "", "  ")
	if err != nil {
		return fmt.Errorf("error producing AST JSON: %w", err)
	}
	return os.WriteFile(path, rendered, 0o644)
}

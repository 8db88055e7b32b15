package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/lexer"
	"github.com/ReggieRumsfeld/zinc/parser"
	"github.com/ReggieRumsfeld/zinc/semantic"
)

// BytecodeExtension is the file extension of compiled applications.
const BytecodeExtension = ".znb"

// parseFile lexes and parses one source file, returning the statements and
// the application name derived from the file name.
func parseFile(path string) ([]ast.Stmt, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	lex := lexer.New(string(data))
	tokens, err := lex.Scan()
	if err != nil {
		return nil, "", err
	}

	statements, err := parser.Make(tokens).Parse()
	if err != nil {
		return nil, "", err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return statements, name, nil
}

// compileFile runs the full front end over one source file and returns the
// built application.
func compileFile(path string) (*bytecode.Application, error) {
	statements, name, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	return semantic.Analyze(name, statements)
}

// loadApplication compiles a source file or decodes an already-built
// bytecode file, depending on the extension.
func loadApplication(path string) (*bytecode.Application, error) {
	if filepath.Ext(path) == BytecodeExtension {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return bytecode.Decode(data)
	}
	return compileFile(path)
}

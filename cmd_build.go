package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/parser"
	"github.com/ReggieRumsfeld/zinc/semantic"
)

// buildCmd implements the build command.
type buildCmd struct {
	output      string
	disassemble bool
	dumpAST     bool
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "Compile a Zinc source file to bytecode" }
func (*buildCmd) Usage() string {
	return `build [-o <path>] [-S] <file.zn>:
  Compile Zinc source code to a bytecode file.
`
}

func (b *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.output, "o", "", "output path (defaults to the source path with the bytecode extension)")
	f.BoolVar(&b.disassemble, "S", false, "print the disassembled instruction stream")
	f.BoolVar(&b.dumpAST, "ast", false, "print the parsed tree as JSON")
}

func (b *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	path := args[0]

	statements, name, err := parseFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if b.dumpAST {
		if _, err := parser.PrintASTJSON(statements); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	application, err := semantic.Analyze(name, statements)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if b.disassemble {
		fmt.Print(bytecode.Disassemble(application))
	}

	encoded, err := bytecode.Encode(application)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to encode bytecode: %v\n", err)
		return subcommands.ExitFailure
	}

	output := b.output
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + BytecodeExtension
	}
	if err := os.WriteFile(output, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write bytecode file: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("built %s '%s': %d instructions, %d methods -> %s\n",
		application.Kind, application.Name,
		len(application.Instructions), len(application.Methods), output)
	return subcommands.ExitSuccess
}

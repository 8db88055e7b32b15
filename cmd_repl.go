package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/ReggieRumsfeld/zinc/lexer"
	"github.com/ReggieRumsfeld/zinc/parser"
	"github.com/ReggieRumsfeld/zinc/semantic"
)

// replCmd implements the REPL command: an interactive loop that lexes,
// parses and constant-folds expressions.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Evaluate constant Zinc expressions interactively" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive loop that folds constant expressions.
`
}

func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("Welcome to Zinc! Type 'exit' to leave.")

	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if line == "exit" {
			return subcommands.ExitSuccess
		}
		if line == "" {
			continue
		}

		tokens, err := lexer.New(line).Scan()
		if err != nil {
			fmt.Println(err)
			continue
		}
		expression, err := parser.Make(tokens).ParseExpression()
		if err != nil {
			fmt.Println(err)
			continue
		}
		constant, err := semantic.FoldExpression(expression)
		if err != nil {
			fmt.Println(err)
			continue
		}
		printConstant(constant)
	}
}

// printConstant renders a folded constant for the REPL.
func printConstant(constant semantic.Constant) {
	switch typed := constant.(type) {
	case semantic.IntegerConstant:
		fmt.Printf("%s: %s\n", typed.Value, typed.Type())
	case semantic.BooleanConstant:
		fmt.Printf("%v: bool\n", typed.Value)
	case semantic.StringConstant:
		fmt.Printf("%q: str\n", typed.Value)
	case semantic.UnitConstant:
		fmt.Println("()")
	default:
		fmt.Printf("%v\n", constant)
	}
}

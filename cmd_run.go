package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/ReggieRumsfeld/zinc/bytecode"
	"github.com/ReggieRumsfeld/zinc/vm"
)

// runCmd implements the run command: compile (or load) and execute one
// method over the test constraint system.
type runCmd struct {
	method  string
	input   string
	storage string
	verbose bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a method of a Zinc application" }
func (*runCmd) Usage() string {
	return `run [-method <name>] [-input <json>] [-storage <json>] <file>:
  Compile a source file (or load a bytecode file) and execute a method.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.method, "method", "main", "the method to execute")
	f.StringVar(&r.input, "input", "{}", "the input arguments as JSON")
	f.StringVar(&r.storage, "storage", "", "the contract storage as JSON")
	f.BoolVar(&r.verbose, "v", false, "enable debug logging")
}

func (r *runCmd) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if r.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	application, err := loadApplication(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	logger := r.logger()
	runner := vm.NewRunner(logger)

	if application.Kind == bytecode.KindContract {
		if r.storage == "" {
			fmt.Fprintf(os.Stderr, "💥 A contract run needs -storage\n")
			return subcommands.ExitUsageError
		}
		output, err := runner.RunContract(application, r.method, []byte(r.input), []byte(r.storage))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("output: %s\n", output.Result)
		fmt.Printf("storage: %s\n", output.Storage)
		for _, transfer := range output.Transfers {
			fmt.Printf("transfer: to=%s token=%s amount=%s\n",
				transfer.Recipient, transfer.TokenID, transfer.Amount)
		}
		reportConstraints(logger, &output.Output)
		if !output.Satisfied {
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	output, err := runner.Run(application, r.method, []byte(r.input))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("output: %s\n", output.Result)
	reportConstraints(logger, output)
	if !output.Satisfied {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func reportConstraints(logger zerolog.Logger, output *vm.Output) {
	logger.Info().
		Int("constraints", output.ConstraintCount).
		Int("inputs", output.InputCount).
		Bool("satisfied", output.Satisfied).
		Msg("constraint system")
	if !output.Satisfied {
		fmt.Fprintf(os.Stderr, "💥 Unsatisfied constraint: %s\n", output.Unsatisfied)
	}
}

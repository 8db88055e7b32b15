// run.go contains the method execution entry points: input decoding, wire
// allocation, the run itself and output harvesting. Method inputs become
// public input wires; contract storage is injected before the run and the
// mutated storage is harvested afterwards for the caller to persist.

package vm

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"github.com/ReggieRumsfeld/zinc/bytecode"
)

// Output is the result of one method run over the test constraint system.
type Output struct {
	Result json.RawMessage

	ConstraintCount int
	InputCount      int
	Satisfied       bool
	Unsatisfied     string
}

// ContractOutput extends Output with the harvested storage and the
// transfers emitted during the run.
type ContractOutput struct {
	Output
	Storage   json.RawMessage
	Transfers []Transfer
}

// Runner executes methods of a compiled application, each run over a fresh
// test constraint system.
type Runner struct {
	logger zerolog.Logger
}

// NewRunner creates a runner logging through the provided logger.
func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{logger: logger}
}

// prepare decodes the input JSON, allocates the public input wires and
// preloads them into the root data frame.
func prepare(cs ConstraintSystem, vm *VM, method bytecode.Method, inputJSON []byte) error {
	values, err := bytecode.ParseValueJSON(method.InputType, inputJSON)
	if err != nil {
		return err
	}
	scalarTypes := method.InputType.ScalarTypes()

	for i, value := range values {
		concrete := fieldFromBigInt(value)
		variable, err := cs.AllocInput(
			fmt.Sprintf("input %d", i),
			func() (fr.Element, error) { return concrete, nil },
		)
		if err != nil {
			return err
		}
		cell := Cell{Variable: variable, Value: &concrete, Type: scalarTypes[i]}
		vm.dataStack.Set(i, cell)
	}
	return nil
}

// Run executes a circuit or library method with the given JSON input and
// returns the rendered output together with the constraint statistics.
func (runner *Runner) Run(application *bytecode.Application, methodName string, inputJSON []byte) (*Output, error) {
	method, err := application.Method(methodName)
	if err != nil {
		return nil, err
	}

	cs := NewTestConstraintSystem()
	vm := New(cs, runner.logger)
	vm.file = application.Name

	if err := prepare(cs, vm, method, inputJSON); err != nil {
		return nil, err
	}

	if err := vm.Run(application.Instructions, method.Address); err != nil {
		return nil, err
	}

	return harvest(cs, vm, method)
}

// RunContract executes a contract method: the storage JSON is injected
// before the run and the mutated storage comes back in the output for the
// caller to persist.
func (runner *Runner) RunContract(application *bytecode.Application, methodName string, inputJSON []byte, storageJSON []byte) (*ContractOutput, error) {
	if application.Kind != bytecode.KindContract {
		return nil, fmt.Errorf("'%s' is a %s, not a contract", application.Name, application.Kind)
	}
	method, err := application.Method(methodName)
	if err != nil {
		return nil, err
	}

	cs := NewTestConstraintSystem()
	vm := New(cs, runner.logger)
	vm.file = application.Name

	if err := injectStorage(cs, vm, application, storageJSON); err != nil {
		return nil, err
	}
	if err := prepare(cs, vm, method, inputJSON); err != nil {
		return nil, err
	}

	if err := vm.Run(application.Instructions, method.Address); err != nil {
		return nil, err
	}

	output, err := harvest(cs, vm, method)
	if err != nil {
		return nil, err
	}

	storage, err := harvestStorage(vm, application)
	if err != nil {
		return nil, err
	}

	return &ContractOutput{
		Output:    *output,
		Storage:   storage,
		Transfers: vm.Transfers(),
	}, nil
}

// injectStorage decodes the storage JSON against the contract schema and
// loads the cells into the VM's storage area.
func injectStorage(cs ConstraintSystem, vm *VM, application *bytecode.Application, storageJSON []byte) error {
	storageType := application.StorageType()
	values, err := bytecode.ParseValueJSON(storageType, storageJSON)
	if err != nil {
		return err
	}
	scalarTypes := storageType.ScalarTypes()

	vm.storage = make([]Cell, len(values))
	for i, value := range values {
		concrete := fieldFromBigInt(value)
		variable, err := cs.Alloc(
			fmt.Sprintf("storage %d", i),
			func() (fr.Element, error) { return concrete, nil },
		)
		if err != nil {
			return err
		}
		vm.storage[i] = Cell{Variable: variable, Value: &concrete, Type: scalarTypes[i]}
	}

	offset := 0
	for _, field := range application.Storage {
		size := field.Type.SizeInCells()
		vm.storageOffsets = append(vm.storageOffsets, offset)
		vm.storageSizes = append(vm.storageSizes, size)
		offset += size
	}
	return nil
}

// harvest pops the method result from the evaluation stack, renders it as
// JSON and collects the constraint statistics.
func harvest(cs *TestConstraintSystem, vm *VM, method bytecode.Method) (*Output, error) {
	outputSize := method.OutputType.SizeInCells()
	cells, err := vm.popMany(outputSize)
	if err != nil {
		return nil, err
	}

	values := make([]*big.Int, len(cells))
	for i, cell := range cells {
		value := cell.BigInt()
		if value == nil {
			return nil, runtimeErrorf(KindInternalError,
				"output cell %d has no witness", i)
		}
		values[i] = value
	}

	rendered, err := bytecode.RenderValueJSON(method.OutputType, values)
	if err != nil {
		return nil, err
	}

	unsatisfied, found := cs.WhichIsUnsatisfied()
	return &Output{
		Result:          rendered,
		ConstraintCount: cs.NumConstraints(),
		InputCount:      cs.NumInputs(),
		Satisfied:       !found,
		Unsatisfied:     unsatisfied,
	}, nil
}

// harvestStorage renders the VM storage back into the contract's storage
// JSON.
func harvestStorage(vm *VM, application *bytecode.Application) (json.RawMessage, error) {
	values := make([]*big.Int, len(vm.storage))
	for i, cell := range vm.storage {
		value := cell.BigInt()
		if value == nil {
			return nil, runtimeErrorf(KindInternalError,
				"storage cell %d has no witness", i)
		}
		values[i] = value
	}
	return bytecode.RenderValueJSON(application.StorageType(), values)
}

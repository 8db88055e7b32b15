// data_stack.go contains the index-addressed local storage of the VM.
// Stores inside a conditional are tracked per branch: when the branch
// closes, every touched address is merged back with a conditional select
// against its pre-branch value, so the locals stay a pure function of the
// condition wire.

package vm

import (
	"sort"
)

// branchRecord tracks the writes of one open conditional.
type branchRecord struct {
	// originals holds the pre-branch cell of every address written inside
	// either branch.
	originals map[int]Cell

	// thenDelta captures the then-branch outcome when the else branch
	// begins.
	thenDelta map[int]Cell

	// inElse reports whether the else branch is active.
	inElse bool
}

// DataStack is the addressable cell store of the call frame stack.
type DataStack struct {
	memory   []Cell
	occupied []bool
	branches []*branchRecord
}

// NewDataStack creates an empty data stack.
func NewDataStack() *DataStack {
	return &DataStack{}
}

// grow extends the memory up to the address.
func (stack *DataStack) grow(address int) {
	for len(stack.memory) <= address {
		stack.memory = append(stack.memory, Cell{})
		stack.occupied = append(stack.occupied, false)
	}
}

// Get reads the cell at an absolute address.
func (stack *DataStack) Get(address int) (Cell, error) {
	if address < 0 || address >= len(stack.memory) || !stack.occupied[address] {
		return Cell{}, runtimeErrorf(KindInternalError,
			"uninitialized data stack address %d", address)
	}
	return stack.memory[address], nil
}

// Set writes the cell at an absolute address, recording the pre-branch
// value when a conditional is open.
func (stack *DataStack) Set(address int, cell Cell) {
	stack.grow(address)
	if len(stack.branches) > 0 {
		record := stack.branches[len(stack.branches)-1]
		if _, recorded := record.originals[address]; !recorded {
			original := Cell{}
			if stack.occupied[address] {
				original = stack.memory[address]
			}
			record.originals[address] = original
		}
	}
	stack.memory[address] = cell
	stack.occupied[address] = true
}

// EnterBranch opens a conditional.
func (stack *DataStack) EnterBranch() {
	stack.branches = append(stack.branches, &branchRecord{
		originals: make(map[int]Cell),
		thenDelta: make(map[int]Cell),
	})
}

// EnterElse captures the then-branch writes and restores the pre-branch
// state for the else branch.
func (stack *DataStack) EnterElse() error {
	if len(stack.branches) == 0 {
		return runtimeErrorf(KindInternalError, "else without an open branch")
	}
	record := stack.branches[len(stack.branches)-1]
	if record.inElse {
		return runtimeErrorf(KindInternalError, "duplicate else in a branch")
	}
	record.inElse = true
	for address, original := range record.originals {
		record.thenDelta[address] = stack.memory[address]
		stack.memory[address] = original
	}
	return nil
}

// MergeBranch closes a conditional: every address written in either branch
// is selected between its then and else outcome with the condition wire.
// Addresses are merged in ascending order, keeping the constraint sequence
// deterministic.
func (stack *DataStack) MergeBranch(cs ConstraintSystem, condition Scalar) error {
	if len(stack.branches) == 0 {
		return runtimeErrorf(KindInternalError, "merge without an open branch")
	}
	record := stack.branches[len(stack.branches)-1]
	stack.branches = stack.branches[:len(stack.branches)-1]

	if !record.inElse {
		// no else branch: the current state is the then outcome, the
		// original values are the else outcome
		record.thenDelta = make(map[int]Cell)
		for address, original := range record.originals {
			record.thenDelta[address] = stack.memory[address]
			stack.memory[address] = original
		}
	}

	addresses := make([]int, 0, len(record.originals))
	for address := range record.originals {
		addresses = append(addresses, address)
	}
	sort.Ints(addresses)

	for _, address := range addresses {
		thenCell, written := record.thenDelta[address]
		if !written {
			// written only in the else branch: the then outcome is the
			// pre-branch value
			thenCell = record.originals[address]
		}
		elseCell := stack.memory[address]

		merged, err := gadgetSelect(cs, condition, thenCell, elseCell)
		if err != nil {
			return err
		}
		// write through Set so an enclosing branch records this address too
		stack.Set(address, merged)
	}
	return nil
}

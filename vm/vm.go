// vm.go contains the execution loop: a single-threaded interpreter over a
// constraint system. Dispatch is a type switch on the instruction; every
// run over the same bytecode and input emits the identical constraint
// sequence, which witness generation and verification both depend on.

package vm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"github.com/ReggieRumsfeld/zinc/bytecode"
)

// Transfer is one token transfer emitted by the zksync library call.
type Transfer struct {
	Recipient *big.Int
	TokenID   *big.Int
	Amount    *big.Int
}

// callFrame is one function activation.
type callFrame struct {
	returnAddress int
	frameBase     int
}

// branchState tracks one open conditional of the executor.
type branchState struct {
	condition Scalar
	hasElse   bool
}

// loopState tracks one open statically-bounded loop.
type loopState struct {
	bodyStart int
	remaining int
}

// VM executes bytecode over a constraint system, maintaining the
// evaluation stack of symbolic field elements, the addressable data stack
// and the call stack.
type VM struct {
	cs ConstraintSystem

	evaluationStack *EvaluationStack
	dataStack       *DataStack
	callStack       []callFrame
	frameBase       int

	branches []branchState
	loops    []loopState

	storage        []Cell
	storageOffsets []int
	storageSizes   []int

	transfers []Transfer

	instructions []bytecode.Instruction
	ip           int

	file     string
	function string
	line     int
	column   int

	logger zerolog.Logger
}

// New creates a VM over a constraint system.
func New(cs ConstraintSystem, logger zerolog.Logger) *VM {
	return &VM{
		cs:              cs,
		evaluationStack: NewEvaluationStack(),
		dataStack:       NewDataStack(),
		logger:          logger,
	}
}

// locate renders the current source attribution for errors and logs.
func (vm *VM) locate() string {
	return fmt.Sprintf("%s:%d:%d (%s)", vm.file, vm.line, vm.column, vm.function)
}

// push and pop operate on the evaluation stack.
func (vm *VM) push(cell Cell) error {
	return vm.evaluationStack.Push(cell)
}

func (vm *VM) pop() (Cell, error) {
	return vm.evaluationStack.Pop()
}

// popMany pops count cells and returns them in push order.
func (vm *VM) popMany(count int) ([]Cell, error) {
	cells := make([]Cell, count)
	for i := count - 1; i >= 0; i-- {
		cell, err := vm.pop()
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	return cells, nil
}

// pushMany pushes cells in order.
func (vm *VM) pushMany(cells []Cell) error {
	for _, cell := range cells {
		if err := vm.push(cell); err != nil {
			return err
		}
	}
	return nil
}

// effectiveCondition conjoins every open branch condition, negating the
// ones whose else arm is active. Outside conditionals it returns nil.
// Storage writes are merged against it, so a store deep inside nested
// branches only survives when every enclosing branch actually took it.
func (vm *VM) effectiveCondition() (*Scalar, error) {
	if len(vm.branches) == 0 {
		return nil, nil
	}
	var combined *Scalar
	for i := range vm.branches {
		condition := vm.branches[i].condition
		if vm.branches[i].hasElse {
			negated, err := gadgetNot(vm.cs, condition)
			if err != nil {
				return nil, err
			}
			condition = negated
		}
		if combined == nil {
			next := condition
			combined = &next
			continue
		}
		conjoined, err := gadgetBitAnd(vm.cs, *combined, condition)
		if err != nil {
			return nil, err
		}
		combined = &conjoined
	}
	return combined, nil
}

// Run executes the instruction stream starting at the entry address until
// the entry function returns. The caller preloads the input cells into the
// root data frame beforehand.
func (vm *VM) Run(instructions []bytecode.Instruction, entry int) error {
	vm.instructions = instructions
	vm.ip = entry

	for {
		if vm.ip < 0 || vm.ip >= len(vm.instructions) {
			return runtimeErrorf(KindInternalError,
				"instruction pointer %d is out of bounds", vm.ip)
		}
		instruction := vm.instructions[vm.ip]

		vm.cs.PushNamespace(fmt.Sprintf("%04d %s", vm.ip, bytecode.Name(instruction)))
		halt, err := vm.step(instruction)
		vm.cs.PopNamespace()
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

// step executes one instruction and advances the instruction pointer; it
// reports whether execution halted.
func (vm *VM) step(instruction bytecode.Instruction) (bool, error) {
	next := vm.ip + 1

	switch typed := instruction.(type) {
	case bytecode.NoOperation:

	case bytecode.FileMarker:
		vm.file = typed.File
	case bytecode.FunctionMarker:
		vm.function = typed.Function
	case bytecode.LineMarker:
		vm.line = typed.Line
	case bytecode.ColumnMarker:
		vm.column = typed.Column

	case bytecode.Push:
		cell, err := constantScalar(vm.cs, typed.Value, typed.Type)
		if err != nil {
			return false, err
		}
		if err := vm.push(cell); err != nil {
			return false, err
		}

	case bytecode.Copy:
		cell, err := vm.pop()
		if err != nil {
			return false, err
		}
		if err := vm.push(cell); err != nil {
			return false, err
		}
		if err := vm.push(cell); err != nil {
			return false, err
		}

	case bytecode.Slice:
		cells, err := vm.popMany(typed.TotalSize)
		if err != nil {
			return false, err
		}
		if typed.Offset+typed.SliceSize > typed.TotalSize {
			return false, runtimeErrorf(KindIndexOutOfBounds,
				"slice [%d, %d) exceeds %d cells at %s",
				typed.Offset, typed.Offset+typed.SliceSize, typed.TotalSize, vm.locate())
		}
		if err := vm.pushMany(cells[typed.Offset : typed.Offset+typed.SliceSize]); err != nil {
			return false, err
		}

	case bytecode.Load:
		for i := 0; i < typed.Size; i++ {
			cell, err := vm.dataStack.Get(vm.frameBase + typed.Address + i)
			if err != nil {
				return false, err
			}
			if err := vm.push(cell); err != nil {
				return false, err
			}
		}

	case bytecode.Store:
		cells, err := vm.popMany(typed.Size)
		if err != nil {
			return false, err
		}
		for i, cell := range cells {
			vm.dataStack.Set(vm.frameBase+typed.Address+i, cell)
		}

	case bytecode.LoadByIndex:
		if err := vm.loadByIndex(typed); err != nil {
			return false, err
		}

	case bytecode.StoreByIndex:
		if err := vm.storeByIndex(typed); err != nil {
			return false, err
		}

	case bytecode.StorageLoad:
		if err := vm.storageLoad(typed.Index, typed.Size); err != nil {
			return false, err
		}

	case bytecode.StorageStore:
		if err := vm.storageStore(typed.Index, typed.Size); err != nil {
			return false, err
		}

	case bytecode.StorageFetch:
		if len(vm.storage) != typed.Size {
			return false, runtimeErrorf(KindInternalError,
				"storage holds %d cells, fetch expects %d", len(vm.storage), typed.Size)
		}
		if err := vm.pushMany(vm.storage); err != nil {
			return false, err
		}

	case bytecode.StorageInit:
		cells, err := vm.popMany(typed.Size)
		if err != nil {
			return false, err
		}
		if len(vm.storage) != typed.Size {
			return false, runtimeErrorf(KindInternalError,
				"storage holds %d cells, init expects %d", len(vm.storage), typed.Size)
		}
		copy(vm.storage, cells)

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Rem:
		if err := vm.arithmetic(instruction); err != nil {
			return false, err
		}

	case bytecode.Neg:
		cell, err := vm.pop()
		if err != nil {
			return false, err
		}
		result, err := gadgetNeg(vm.cs, cell)
		if err != nil {
			return false, vm.located(err)
		}
		if err := vm.push(result); err != nil {
			return false, err
		}

	case bytecode.BitwiseAnd, bytecode.BitwiseOr, bytecode.BitwiseXor,
		bytecode.BitwiseShiftLeft, bytecode.BitwiseShiftRight, bytecode.BitwiseNot:
		if err := vm.bitwise(instruction); err != nil {
			return false, err
		}

	case bytecode.Eq, bytecode.Ne, bytecode.Lt, bytecode.Le, bytecode.Gt, bytecode.Ge:
		if err := vm.comparison(instruction); err != nil {
			return false, err
		}

	case bytecode.And, bytecode.Or, bytecode.Xor, bytecode.Not:
		if err := vm.logical(instruction); err != nil {
			return false, err
		}

	case bytecode.Cast:
		cell, err := vm.pop()
		if err != nil {
			return false, err
		}
		result, err := gadgetCast(vm.cs, cell, typed.Type)
		if err != nil {
			return false, vm.located(err)
		}
		if err := vm.push(result); err != nil {
			return false, err
		}

	case bytecode.If:
		condition, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.branches = append(vm.branches, branchState{condition: condition})
		vm.evaluationStack.Fork()
		vm.dataStack.EnterBranch()

	case bytecode.Else:
		if len(vm.branches) == 0 {
			return false, runtimeErrorf(KindInternalError, "else without if at %s", vm.locate())
		}
		vm.branches[len(vm.branches)-1].hasElse = true
		vm.evaluationStack.Fork()
		if err := vm.dataStack.EnterElse(); err != nil {
			return false, err
		}

	case bytecode.EndIf:
		if len(vm.branches) == 0 {
			return false, runtimeErrorf(KindInternalError, "endif without if at %s", vm.locate())
		}
		branch := vm.branches[len(vm.branches)-1]
		vm.branches = vm.branches[:len(vm.branches)-1]
		if !branch.hasElse {
			// synthesize the empty else frame so the merge sees both cases
			vm.evaluationStack.Fork()
		}
		if err := vm.evaluationStack.Merge(vm.cs, branch.condition); err != nil {
			return false, err
		}
		if err := vm.dataStack.MergeBranch(vm.cs, branch.condition); err != nil {
			return false, err
		}

	case bytecode.LoopBegin:
		if typed.Iterations == 0 {
			skipped, err := vm.matchingLoopEnd(vm.ip)
			if err != nil {
				return false, err
			}
			next = skipped + 1
			break
		}
		vm.loops = append(vm.loops, loopState{
			bodyStart: vm.ip + 1,
			remaining: typed.Iterations,
		})

	case bytecode.LoopEnd:
		if len(vm.loops) == 0 {
			return false, runtimeErrorf(KindInternalError, "loop end without begin at %s", vm.locate())
		}
		top := len(vm.loops) - 1
		vm.loops[top].remaining--
		if vm.loops[top].remaining > 0 {
			next = vm.loops[top].bodyStart
		} else {
			vm.loops = vm.loops[:top]
		}

	case bytecode.Call:
		cells, err := vm.popMany(typed.InputSize)
		if err != nil {
			return false, err
		}
		vm.callStack = append(vm.callStack, callFrame{
			returnAddress: vm.ip + 1,
			frameBase:     vm.frameBase,
		})
		// the new frame starts past every cell any caller has touched, so
		// callee locals can never clobber caller locals
		vm.frameBase = len(vm.dataStack.memory)
		for i, cell := range cells {
			vm.dataStack.Set(vm.frameBase+i, cell)
		}
		next = typed.Address

	case bytecode.Return:
		if len(vm.callStack) == 0 {
			// the entry function returned: execution halts with the
			// results on the evaluation stack
			return true, nil
		}
		frame := vm.callStack[len(vm.callStack)-1]
		vm.callStack = vm.callStack[:len(vm.callStack)-1]
		vm.frameBase = frame.frameBase
		next = frame.returnAddress

	case bytecode.CallLibrary:
		if err := vm.callLibrary(typed); err != nil {
			return false, err
		}

	case bytecode.Require:
		condition, err := vm.pop()
		if err != nil {
			return false, err
		}
		one := NewLC(One)
		vm.cs.Enforce("require", condition.LC(), one, one)
		if condition.HasValue() && condition.Value.IsZero() {
			return false, runtimeErrorf(KindRequireFailed,
				"'%s' at %s", typed.Message, vm.locate())
		}

	case bytecode.Dbg:
		cells, err := vm.popMany(len(typed.ArgTypes))
		if err != nil {
			return false, err
		}
		event := vm.logger.Debug().Str("format", typed.Format)
		for i, cell := range cells {
			if value := cell.BigInt(); value != nil {
				event = event.Str(fmt.Sprintf("arg%d", i), value.String())
			}
		}
		event.Msg("dbg")

	default:
		return false, runtimeErrorf(KindInternalError,
			"unknown instruction %s at %s", bytecode.Name(instruction), vm.locate())
	}

	vm.ip = next
	return false, nil
}

// located attaches the current source attribution to runtime errors.
func (vm *VM) located(err error) error {
	if typed, ok := err.(RuntimeError); ok {
		typed.Message = typed.Message + " at " + vm.locate()
		return typed
	}
	return err
}

// matchingLoopEnd scans forward for the LoopEnd matching the LoopBegin at
// the given address, honoring nesting.
func (vm *VM) matchingLoopEnd(begin int) (int, error) {
	depth := 0
	for address := begin; address < len(vm.instructions); address++ {
		switch vm.instructions[address].(type) {
		case bytecode.LoopBegin:
			depth++
		case bytecode.LoopEnd:
			depth--
			if depth == 0 {
				return address, nil
			}
		}
	}
	return 0, runtimeErrorf(KindInternalError, "unterminated loop at %d", begin)
}

// arithmetic dispatches the binary arithmetic instructions.
func (vm *VM) arithmetic(instruction bytecode.Instruction) error {
	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}

	var result Scalar
	switch instruction.(type) {
	case bytecode.Add:
		result, err = gadgetAdd(vm.cs, left, right)
	case bytecode.Sub:
		result, err = gadgetSub(vm.cs, left, right)
	case bytecode.Mul:
		result, err = gadgetMul(vm.cs, left, right)
	case bytecode.Div:
		result, _, err = gadgetDivRemSplit(vm.cs, left, right, true)
	case bytecode.Rem:
		_, result, err = gadgetDivRemSplit(vm.cs, left, right, false)
	}
	if err != nil {
		return vm.located(err)
	}
	return vm.push(result)
}

// gadgetDivRemSplit wraps gadgetDivRem so the remainder keeps the operand's
// declared type when requested through Rem.
func gadgetDivRemSplit(cs ConstraintSystem, a, b Scalar, wantQuotient bool) (Scalar, Scalar, error) {
	quotient, remainder, err := gadgetDivRem(cs, a, b)
	if err != nil {
		return Scalar{}, Scalar{}, err
	}
	if !wantQuotient {
		remainder.Type = a.Type
	}
	return quotient, remainder, nil
}

// bitwise dispatches the bitwise instructions.
func (vm *VM) bitwise(instruction bytecode.Instruction) error {
	if _, ok := instruction.(bytecode.BitwiseNot); ok {
		cell, err := vm.pop()
		if err != nil {
			return err
		}
		bits, err := scalarBits(vm.cs, cell)
		if err != nil {
			return vm.located(err)
		}
		flipped := make([]Scalar, len(bits))
		for i, bit := range bits {
			flipped[i], err = gadgetNot(vm.cs, bit)
			if err != nil {
				return vm.located(err)
			}
		}
		result, err := recomposeBits(vm.cs, flipped, cell.Type)
		if err != nil {
			return vm.located(err)
		}
		return vm.push(result)
	}

	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}

	var result Scalar
	switch instruction.(type) {
	case bytecode.BitwiseAnd:
		result, err = bitwiseCombine(vm.cs, left, right, gadgetBitAnd)
	case bytecode.BitwiseOr:
		result, err = bitwiseCombine(vm.cs, left, right, gadgetBitOr)
	case bytecode.BitwiseXor:
		result, err = bitwiseCombine(vm.cs, left, right, gadgetBitXor)
	case bytecode.BitwiseShiftLeft:
		result, err = gadgetShift(vm.cs, left, right, true)
	case bytecode.BitwiseShiftRight:
		result, err = gadgetShift(vm.cs, left, right, false)
	}
	if err != nil {
		return vm.located(err)
	}
	return vm.push(result)
}

// comparison dispatches the comparison instructions.
func (vm *VM) comparison(instruction bytecode.Instruction) error {
	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}

	var result Scalar
	switch instruction.(type) {
	case bytecode.Eq:
		result, err = gadgetEq(vm.cs, left, right)
	case bytecode.Ne:
		equal, innerErr := gadgetEq(vm.cs, left, right)
		if innerErr != nil {
			err = innerErr
			break
		}
		result, err = gadgetNot(vm.cs, equal)
	case bytecode.Ge:
		result, err = gadgetGe(vm.cs, left, right)
	case bytecode.Le:
		result, err = gadgetGe(vm.cs, right, left)
	case bytecode.Lt:
		greaterEqual, innerErr := gadgetGe(vm.cs, left, right)
		if innerErr != nil {
			err = innerErr
			break
		}
		result, err = gadgetNot(vm.cs, greaterEqual)
	case bytecode.Gt:
		lesserEqual, innerErr := gadgetGe(vm.cs, right, left)
		if innerErr != nil {
			err = innerErr
			break
		}
		result, err = gadgetNot(vm.cs, lesserEqual)
	}
	if err != nil {
		return vm.located(err)
	}
	return vm.push(result)
}

// logical dispatches the boolean instructions.
func (vm *VM) logical(instruction bytecode.Instruction) error {
	if _, ok := instruction.(bytecode.Not); ok {
		cell, err := vm.pop()
		if err != nil {
			return err
		}
		result, err := gadgetNot(vm.cs, cell)
		if err != nil {
			return vm.located(err)
		}
		return vm.push(result)
	}

	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}

	var result Scalar
	switch instruction.(type) {
	case bytecode.And:
		result, err = gadgetBitAnd(vm.cs, left, right)
	case bytecode.Or:
		result, err = gadgetBitOr(vm.cs, left, right)
	case bytecode.Xor:
		result, err = gadgetBitXor(vm.cs, left, right)
	}
	if err != nil {
		return vm.located(err)
	}
	return vm.push(result)
}

// loadByIndex reads one element of an aggregate with a runtime index: the
// result is a conditional-select chain over every element, so the gate
// sequence does not depend on the witness.
func (vm *VM) loadByIndex(instruction bytecode.LoadByIndex) error {
	index, err := vm.pop()
	if err != nil {
		return err
	}
	elements := instruction.TotalSize / instruction.ElementSize

	if index.HasValue() {
		concrete := index.BigInt()
		if !concrete.IsInt64() || concrete.Int64() < 0 || concrete.Int64() >= int64(elements) {
			return runtimeErrorf(KindIndexOutOfBounds,
				"index '%s' is out of bounds of %d elements at %s", concrete, elements, vm.locate())
		}
	}

	result := make([]Cell, instruction.ElementSize)
	for offset := 0; offset < instruction.ElementSize; offset++ {
		cell, err := vm.dataStack.Get(vm.frameBase + instruction.Address + offset)
		if err != nil {
			return err
		}
		result[offset] = cell
	}

	for element := 1; element < elements; element++ {
		indexConstant, err := constantScalar(vm.cs, big.NewInt(int64(element)), index.Type)
		if err != nil {
			return err
		}
		matches, err := gadgetEq(vm.cs, index, indexConstant)
		if err != nil {
			return vm.located(err)
		}
		base := vm.frameBase + instruction.Address + element*instruction.ElementSize
		for offset := 0; offset < instruction.ElementSize; offset++ {
			candidate, err := vm.dataStack.Get(base + offset)
			if err != nil {
				return err
			}
			result[offset], err = gadgetSelect(vm.cs, matches, candidate, result[offset])
			if err != nil {
				return vm.located(err)
			}
		}
	}

	return vm.pushMany(result)
}

// storeByIndex writes one element of an aggregate with a runtime index:
// every element is rewritten with a conditional select against the new
// value.
func (vm *VM) storeByIndex(instruction bytecode.StoreByIndex) error {
	value, err := vm.popMany(instruction.ElementSize)
	if err != nil {
		return err
	}
	index, err := vm.pop()
	if err != nil {
		return err
	}
	elements := instruction.TotalSize / instruction.ElementSize

	if index.HasValue() {
		concrete := index.BigInt()
		if !concrete.IsInt64() || concrete.Int64() < 0 || concrete.Int64() >= int64(elements) {
			return runtimeErrorf(KindIndexOutOfBounds,
				"index '%s' is out of bounds of %d elements at %s", concrete, elements, vm.locate())
		}
	}

	for element := 0; element < elements; element++ {
		indexConstant, err := constantScalar(vm.cs, big.NewInt(int64(element)), index.Type)
		if err != nil {
			return err
		}
		matches, err := gadgetEq(vm.cs, index, indexConstant)
		if err != nil {
			return vm.located(err)
		}
		base := vm.frameBase + instruction.Address + element*instruction.ElementSize
		for offset := 0; offset < instruction.ElementSize; offset++ {
			current, err := vm.dataStack.Get(base + offset)
			if err != nil {
				return err
			}
			merged, err := gadgetSelect(vm.cs, matches, value[offset], current)
			if err != nil {
				return vm.located(err)
			}
			vm.dataStack.Set(base+offset, merged)
		}
	}
	return nil
}

// storageLoad pushes the cells of one contract storage field.
func (vm *VM) storageLoad(index int, size int) error {
	if index < 0 || index >= len(vm.storageOffsets) {
		return runtimeErrorf(KindIndexOutOfBounds,
			"storage field %d does not exist at %s", index, vm.locate())
	}
	offset := vm.storageOffsets[index]
	if size != vm.storageSizes[index] {
		return runtimeErrorf(KindInternalError,
			"storage field %d holds %d cells, load expects %d", index, vm.storageSizes[index], size)
	}
	return vm.pushMany(vm.storage[offset : offset+size])
}

// storageStore pops the cells of one contract storage field. Inside a
// conditional the write is merged with the branch condition, matching the
// data stack behavior.
func (vm *VM) storageStore(index int, size int) error {
	if index < 0 || index >= len(vm.storageOffsets) {
		return runtimeErrorf(KindIndexOutOfBounds,
			"storage field %d does not exist at %s", index, vm.locate())
	}
	offset := vm.storageOffsets[index]
	if size != vm.storageSizes[index] {
		return runtimeErrorf(KindInternalError,
			"storage field %d holds %d cells, store expects %d", index, vm.storageSizes[index], size)
	}
	cells, err := vm.popMany(size)
	if err != nil {
		return err
	}

	condition, err := vm.effectiveCondition()
	if err != nil {
		return err
	}
	for i, cell := range cells {
		if condition != nil {
			merged, err := gadgetSelect(vm.cs, *condition, cell, vm.storage[offset+i])
			if err != nil {
				return vm.located(err)
			}
			cell = merged
		}
		vm.storage[offset+i] = cell
	}
	return nil
}

// callLibrary dispatches the built-in library routines.
func (vm *VM) callLibrary(instruction bytecode.CallLibrary) error {
	switch instruction.Identifier {
	case bytecode.LibraryFromBitsUnsigned, bytecode.LibraryFromBitsSigned:
		signed := instruction.Identifier == bytecode.LibraryFromBitsSigned
		cells, err := vm.popMany(instruction.InputSize)
		if err != nil {
			return err
		}
		// the argument array is most significant bit first; recomposition
		// runs least significant first
		bits := make([]Scalar, len(cells))
		for i, cell := range cells {
			bits[len(cells)-1-i] = cell
		}
		if signed {
			return vm.fromBitsSigned(bits)
		}
		result, err := recomposeBits(vm.cs, bits, bytecode.IntegerType(false, len(bits)))
		if err != nil {
			return vm.located(err)
		}
		return vm.push(result)

	case bytecode.LibraryToBits:
		cell, err := vm.pop()
		if err != nil {
			return err
		}
		bits, err := scalarBits(vm.cs, cell)
		if err != nil {
			return vm.located(err)
		}
		// push most significant first to mirror the argument order of the
		// from_bits routines
		for i := len(bits) - 1; i >= 0; i-- {
			if err := vm.push(bits[i]); err != nil {
				return err
			}
		}
		return nil

	case bytecode.LibraryTransfer:
		amount, err := vm.pop()
		if err != nil {
			return err
		}
		tokenID, err := vm.pop()
		if err != nil {
			return err
		}
		recipient, err := vm.pop()
		if err != nil {
			return err
		}
		if !amount.HasValue() || !tokenID.HasValue() || !recipient.HasValue() {
			return runtimeErrorf(KindInternalError,
				"transfer with unknown witness at %s", vm.locate())
		}
		vm.transfers = append(vm.transfers, Transfer{
			Recipient: recipient.BigInt(),
			TokenID:   tokenID.BigInt(),
			Amount:    amount.BigInt(),
		})
		return nil
	}

	return runtimeErrorf(KindInternalError,
		"unknown library routine %d at %s", instruction.Identifier, vm.locate())
}

// fromBitsSigned recomposes two's-complement bits, least significant
// first: the top bit weighs -2^(n-1), which the gadget expresses by
// shifting into the unsigned window and back.
func (vm *VM) fromBitsSigned(bits []Scalar) error {
	n := len(bits)
	sum := LinearCombination{}
	coefficient := new(big.Int).SetInt64(1)
	value := new(big.Int)
	known := true
	for i, bit := range bits {
		weight := new(big.Int).Set(coefficient)
		if i == n-1 {
			weight.Neg(weight)
		}
		sum = sum.Add(bit.LC().Scale(fieldFromBigInt(weight)))
		if bit.Value == nil {
			known = false
		} else if !bit.Value.IsZero() {
			value.Add(value, weight)
		}
		coefficient.Lsh(coefficient, 1)
	}

	var witnessValue *fr.Element
	if known {
		element := fieldFromBigInt(value)
		witnessValue = &element
	}
	variable, err := vm.cs.Alloc("from_bits_signed", witnessFn(witnessValue))
	if err != nil {
		return err
	}
	one := NewLC(One)
	vm.cs.Enforce("from_bits_signed", sum, one, NewLC(variable))
	return vm.push(Scalar{
		Variable: variable,
		Value:    witnessValue,
		Type:     bytecode.IntegerType(true, n),
	})
}

// Transfers returns the transfers recorded by library calls during the
// run.
func (vm *VM) Transfers() []Transfer {
	return vm.transfers
}

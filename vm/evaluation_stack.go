// evaluation_stack.go contains the frame-structured evaluation stack.
// Conditionals fork a frame per branch; the merge pops the two branch
// frames and selects each pair of cells with the branch condition, so both
// branches always contribute their constraints and only the surviving
// value is chosen.

package vm

import (
	"fmt"
	"strings"
)

// EvaluationStack is a stack of frames of cells. Operations work on the
// topmost frame.
type EvaluationStack struct {
	frames [][]Cell
}

// NewEvaluationStack creates a stack with the root frame.
func NewEvaluationStack() *EvaluationStack {
	return &EvaluationStack{
		frames: [][]Cell{{}},
	}
}

// Push appends a cell to the topmost frame.
func (stack *EvaluationStack) Push(cell Cell) error {
	if len(stack.frames) == 0 {
		return runtimeErrorf(KindInternalError, "evaluation stack root frame missing")
	}
	top := len(stack.frames) - 1
	stack.frames[top] = append(stack.frames[top], cell)
	return nil
}

// Pop removes and returns the top cell of the topmost frame.
func (stack *EvaluationStack) Pop() (Cell, error) {
	if len(stack.frames) == 0 {
		return Cell{}, runtimeErrorf(KindInternalError, "evaluation stack root frame missing")
	}
	top := len(stack.frames) - 1
	frame := stack.frames[top]
	if len(frame) == 0 {
		return Cell{}, runtimeErrorf(KindStackUnderflow, "the evaluation stack is empty")
	}
	cell := frame[len(frame)-1]
	stack.frames[top] = frame[:len(frame)-1]
	return cell, nil
}

// Fork pushes a new empty frame; used when a conditional branch begins.
func (stack *EvaluationStack) Fork() {
	stack.frames = append(stack.frames, []Cell{})
}

// Merge pops the two top frames (the else case first, then the then case),
// requires them to have equal height and pushes the conditionally selected
// cells onto the frame below.
func (stack *EvaluationStack) Merge(cs ConstraintSystem, condition Scalar) error {
	if len(stack.frames) < 3 {
		return runtimeErrorf(KindInternalError, "evaluation stack branch frames missing")
	}
	top := len(stack.frames) - 1
	elseCase := stack.frames[top]
	thenCase := stack.frames[top-1]
	stack.frames = stack.frames[:top-1]

	if len(thenCase) != len(elseCase) {
		return runtimeErrorf(KindBranchStacksDoNotMatch,
			"the branches left %d and %d cells", len(thenCase), len(elseCase))
	}

	for index := range thenCase {
		cs.PushNamespace(fmt.Sprintf("merge %d", index))
		merged, err := gadgetSelect(cs, condition, thenCase[index], elseCase[index])
		cs.PopNamespace()
		if err != nil {
			return err
		}
		if err := stack.Push(merged); err != nil {
			return err
		}
	}
	return nil
}

// Revert pops the top frame unconditionally.
func (stack *EvaluationStack) Revert() error {
	if len(stack.frames) == 0 {
		return runtimeErrorf(KindStackUnderflow, "no frame to revert")
	}
	stack.frames = stack.frames[:len(stack.frames)-1]
	return nil
}

// Height returns the cell count of the topmost frame.
func (stack *EvaluationStack) Height() int {
	if len(stack.frames) == 0 {
		return 0
	}
	return len(stack.frames[len(stack.frames)-1])
}

func (stack *EvaluationStack) String() string {
	var builder strings.Builder
	builder.WriteString("evaluation stack:\n")
	for i := len(stack.frames) - 1; i >= 0; i-- {
		for j := len(stack.frames[i]) - 1; j >= 0; j-- {
			fmt.Fprintf(&builder, "\t%s\n", stack.frames[i][j])
		}
	}
	return builder.String()
}

package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders the instruction stream of an application to a human
// readable format, one instruction per line with its offset.
func Disassemble(application *Application) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "; %s '%s'\n", application.Kind, application.Name)
	for _, method := range application.Methods {
		fmt.Fprintf(&builder, "; method %s at %04d\n", method.Name, method.Address)
	}

	for offset, instruction := range application.Instructions {
		fmt.Fprintf(&builder, "%04d  %s", offset, Name(instruction))

		switch typed := instruction.(type) {
		case Push:
			fmt.Fprintf(&builder, " %s: %s", typed.Value, typed.Type)
		case Slice:
			fmt.Fprintf(&builder, " total=%d offset=%d size=%d", typed.TotalSize, typed.Offset, typed.SliceSize)
		case Load:
			fmt.Fprintf(&builder, " @%d size=%d", typed.Address, typed.Size)
		case Store:
			fmt.Fprintf(&builder, " @%d size=%d", typed.Address, typed.Size)
		case LoadByIndex:
			fmt.Fprintf(&builder, " @%d total=%d element=%d", typed.Address, typed.TotalSize, typed.ElementSize)
		case StoreByIndex:
			fmt.Fprintf(&builder, " @%d total=%d element=%d", typed.Address, typed.TotalSize, typed.ElementSize)
		case StorageInit:
			fmt.Fprintf(&builder, " size=%d", typed.Size)
		case StorageFetch:
			fmt.Fprintf(&builder, " size=%d", typed.Size)
		case StorageLoad:
			fmt.Fprintf(&builder, " field=%d size=%d", typed.Index, typed.Size)
		case StorageStore:
			fmt.Fprintf(&builder, " field=%d size=%d", typed.Index, typed.Size)
		case Cast:
			fmt.Fprintf(&builder, " to %s", typed.Type)
		case LoopBegin:
			fmt.Fprintf(&builder, " iterations=%d", typed.Iterations)
		case Call:
			fmt.Fprintf(&builder, " @%04d input=%d", typed.Address, typed.InputSize)
		case Return:
			fmt.Fprintf(&builder, " output=%d", typed.OutputSize)
		case CallLibrary:
			fmt.Fprintf(&builder, " %s input=%d output=%d", typed.Identifier, typed.InputSize, typed.OutputSize)
		case Require:
			fmt.Fprintf(&builder, " %q", typed.Message)
		case Dbg:
			fmt.Fprintf(&builder, " %q args=%d", typed.Format, len(typed.ArgTypes))
		case FileMarker:
			fmt.Fprintf(&builder, " %s", typed.File)
		case FunctionMarker:
			fmt.Fprintf(&builder, " %s", typed.Function)
		case LineMarker:
			fmt.Fprintf(&builder, " %d", typed.Line)
		case ColumnMarker:
			fmt.Fprintf(&builder, " %d", typed.Column)
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

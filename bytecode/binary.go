// binary.go contains the bytecode file format: a self-describing binary
// with a magic tag, a format version, the application kind, a JSON metadata
// block (name, method table, storage schema) and the compact instruction
// stream. All multi-byte integers are encoded in big-endian order.

package bytecode

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
)

// Magic is the file tag every bytecode file starts with.
var Magic = [4]byte{'Z', 'I', 'N', 'C'}

// Version is the current format version.
const Version uint16 = 1

// opcodes
// iota generates a distinct byte for each instruction form.
const (
	opNoOperation byte = iota
	opPush
	opCopy
	opSlice
	opLoad
	opStore
	opLoadByIndex
	opStoreByIndex
	opStorageInit
	opStorageFetch
	opStorageLoad
	opStorageStore
	opAdd
	opSub
	opMul
	opDiv
	opRem
	opNeg
	opBitwiseAnd
	opBitwiseOr
	opBitwiseXor
	opBitwiseNot
	opBitwiseShiftLeft
	opBitwiseShiftRight
	opEq
	opNe
	opLt
	opLe
	opGt
	opGe
	opAnd
	opOr
	opXor
	opNot
	opCast
	opIf
	opElse
	opEndIf
	opLoopBegin
	opLoopEnd
	opCall
	opReturn
	opCallLibrary
	opRequire
	opDbg
	opFileMarker
	opFunctionMarker
	opLineMarker
	opColumnMarker
)

type writer struct {
	buffer bytes.Buffer
}

func (w *writer) writeByte(value byte) {
	w.buffer.WriteByte(value)
}

func (w *writer) writeUint32(value int) {
	var encoded [4]byte
	binary.BigEndian.PutUint32(encoded[:], uint32(value))
	w.buffer.Write(encoded[:])
}

func (w *writer) writeString(value string) {
	w.writeUint32(len(value))
	w.buffer.WriteString(value)
}

func (w *writer) writeBigInt(value *big.Int) {
	if value.Sign() < 0 {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
	encoded := value.Bytes()
	w.writeUint32(len(encoded))
	w.buffer.Write(encoded)
}

func (w *writer) writeScalarType(scalar ScalarType) {
	switch scalar.Variant {
	case ScalarBoolean:
		w.writeByte(0)
	case ScalarField:
		w.writeByte(1)
	default:
		if scalar.IsSigned {
			w.writeByte(3)
		} else {
			w.writeByte(2)
		}
		w.writeUint32(scalar.Bitlength)
	}
}

type reader struct {
	data   []byte
	offset int
}

func (r *reader) readByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, fmt.Errorf("bytecode file is truncated at offset %d", r.offset)
	}
	value := r.data[r.offset]
	r.offset++
	return value, nil
}

func (r *reader) readUint32() (int, error) {
	if r.offset+4 > len(r.data) {
		return 0, fmt.Errorf("bytecode file is truncated at offset %d", r.offset)
	}
	value := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return int(value), nil
}

func (r *reader) readBytes(length int) ([]byte, error) {
	if r.offset+length > len(r.data) {
		return nil, fmt.Errorf("bytecode file is truncated at offset %d", r.offset)
	}
	value := r.data[r.offset : r.offset+length]
	r.offset += length
	return value, nil
}

func (r *reader) readString() (string, error) {
	length, err := r.readUint32()
	if err != nil {
		return "", err
	}
	value, err := r.readBytes(length)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (r *reader) readBigInt() (*big.Int, error) {
	sign, err := r.readByte()
	if err != nil {
		return nil, err
	}
	length, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	encoded, err := r.readBytes(length)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).SetBytes(encoded)
	if sign == 1 {
		value.Neg(value)
	}
	return value, nil
}

func (r *reader) readScalarType() (ScalarType, error) {
	variant, err := r.readByte()
	if err != nil {
		return ScalarType{}, err
	}
	switch variant {
	case 0:
		return BooleanType(), nil
	case 1:
		return FieldType(), nil
	case 2, 3:
		bitlength, err := r.readUint32()
		if err != nil {
			return ScalarType{}, err
		}
		return IntegerType(variant == 3, bitlength), nil
	}
	return ScalarType{}, fmt.Errorf("unknown scalar type tag %d", variant)
}

// encodeInstruction appends one instruction to the writer: its opcode byte
// followed by the operand payload.
func encodeInstruction(w *writer, instruction Instruction) error {
	switch typed := instruction.(type) {
	case NoOperation:
		w.writeByte(opNoOperation)
	case Push:
		w.writeByte(opPush)
		w.writeBigInt(typed.Value)
		w.writeScalarType(typed.Type)
	case Copy:
		w.writeByte(opCopy)
	case Slice:
		w.writeByte(opSlice)
		w.writeUint32(typed.TotalSize)
		w.writeUint32(typed.Offset)
		w.writeUint32(typed.SliceSize)
	case Load:
		w.writeByte(opLoad)
		w.writeUint32(typed.Address)
		w.writeUint32(typed.Size)
	case Store:
		w.writeByte(opStore)
		w.writeUint32(typed.Address)
		w.writeUint32(typed.Size)
	case LoadByIndex:
		w.writeByte(opLoadByIndex)
		w.writeUint32(typed.Address)
		w.writeUint32(typed.TotalSize)
		w.writeUint32(typed.ElementSize)
	case StoreByIndex:
		w.writeByte(opStoreByIndex)
		w.writeUint32(typed.Address)
		w.writeUint32(typed.TotalSize)
		w.writeUint32(typed.ElementSize)
	case StorageInit:
		w.writeByte(opStorageInit)
		w.writeUint32(typed.Size)
	case StorageFetch:
		w.writeByte(opStorageFetch)
		w.writeUint32(typed.Size)
	case StorageLoad:
		w.writeByte(opStorageLoad)
		w.writeUint32(typed.Index)
		w.writeUint32(typed.Size)
	case StorageStore:
		w.writeByte(opStorageStore)
		w.writeUint32(typed.Index)
		w.writeUint32(typed.Size)
	case Add:
		w.writeByte(opAdd)
	case Sub:
		w.writeByte(opSub)
	case Mul:
		w.writeByte(opMul)
	case Div:
		w.writeByte(opDiv)
	case Rem:
		w.writeByte(opRem)
	case Neg:
		w.writeByte(opNeg)
	case BitwiseAnd:
		w.writeByte(opBitwiseAnd)
	case BitwiseOr:
		w.writeByte(opBitwiseOr)
	case BitwiseXor:
		w.writeByte(opBitwiseXor)
	case BitwiseNot:
		w.writeByte(opBitwiseNot)
	case BitwiseShiftLeft:
		w.writeByte(opBitwiseShiftLeft)
	case BitwiseShiftRight:
		w.writeByte(opBitwiseShiftRight)
	case Eq:
		w.writeByte(opEq)
	case Ne:
		w.writeByte(opNe)
	case Lt:
		w.writeByte(opLt)
	case Le:
		w.writeByte(opLe)
	case Gt:
		w.writeByte(opGt)
	case Ge:
		w.writeByte(opGe)
	case And:
		w.writeByte(opAnd)
	case Or:
		w.writeByte(opOr)
	case Xor:
		w.writeByte(opXor)
	case Not:
		w.writeByte(opNot)
	case Cast:
		w.writeByte(opCast)
		w.writeScalarType(typed.Type)
	case If:
		w.writeByte(opIf)
	case Else:
		w.writeByte(opElse)
	case EndIf:
		w.writeByte(opEndIf)
	case LoopBegin:
		w.writeByte(opLoopBegin)
		w.writeUint32(typed.Iterations)
	case LoopEnd:
		w.writeByte(opLoopEnd)
	case Call:
		w.writeByte(opCall)
		w.writeUint32(typed.Address)
		w.writeUint32(typed.InputSize)
	case Return:
		w.writeByte(opReturn)
		w.writeUint32(typed.OutputSize)
	case CallLibrary:
		w.writeByte(opCallLibrary)
		w.writeUint32(int(typed.Identifier))
		w.writeUint32(typed.InputSize)
		w.writeUint32(typed.OutputSize)
	case Require:
		w.writeByte(opRequire)
		w.writeString(typed.Message)
	case Dbg:
		w.writeByte(opDbg)
		w.writeString(typed.Format)
		w.writeUint32(len(typed.ArgTypes))
		for _, argType := range typed.ArgTypes {
			w.writeScalarType(argType)
		}
	case FileMarker:
		w.writeByte(opFileMarker)
		w.writeString(typed.File)
	case FunctionMarker:
		w.writeByte(opFunctionMarker)
		w.writeString(typed.Function)
	case LineMarker:
		w.writeByte(opLineMarker)
		w.writeUint32(typed.Line)
	case ColumnMarker:
		w.writeByte(opColumnMarker)
		w.writeUint32(typed.Column)
	default:
		return fmt.Errorf("instruction %T cannot be encoded", instruction)
	}
	return nil
}

// decodeInstruction reads one instruction from the reader.
func decodeInstruction(r *reader) (Instruction, error) {
	opcode, err := r.readByte()
	if err != nil {
		return nil, err
	}

	switch opcode {
	case opNoOperation:
		return NoOperation{}, nil
	case opPush:
		value, err := r.readBigInt()
		if err != nil {
			return nil, err
		}
		scalarType, err := r.readScalarType()
		if err != nil {
			return nil, err
		}
		return Push{Value: value, Type: scalarType}, nil
	case opCopy:
		return Copy{}, nil
	case opSlice:
		totalSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		offset, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		sliceSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Slice{TotalSize: totalSize, Offset: offset, SliceSize: sliceSize}, nil
	case opLoad:
		address, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Load{Address: address, Size: size}, nil
	case opStore:
		address, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Store{Address: address, Size: size}, nil
	case opLoadByIndex:
		address, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		totalSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		elementSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return LoadByIndex{Address: address, TotalSize: totalSize, ElementSize: elementSize}, nil
	case opStoreByIndex:
		address, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		totalSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		elementSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return StoreByIndex{Address: address, TotalSize: totalSize, ElementSize: elementSize}, nil
	case opStorageInit:
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return StorageInit{Size: size}, nil
	case opStorageFetch:
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return StorageFetch{Size: size}, nil
	case opStorageLoad:
		index, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return StorageLoad{Index: index, Size: size}, nil
	case opStorageStore:
		index, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return StorageStore{Index: index, Size: size}, nil
	case opAdd:
		return Add{}, nil
	case opSub:
		return Sub{}, nil
	case opMul:
		return Mul{}, nil
	case opDiv:
		return Div{}, nil
	case opRem:
		return Rem{}, nil
	case opNeg:
		return Neg{}, nil
	case opBitwiseAnd:
		return BitwiseAnd{}, nil
	case opBitwiseOr:
		return BitwiseOr{}, nil
	case opBitwiseXor:
		return BitwiseXor{}, nil
	case opBitwiseNot:
		return BitwiseNot{}, nil
	case opBitwiseShiftLeft:
		return BitwiseShiftLeft{}, nil
	case opBitwiseShiftRight:
		return BitwiseShiftRight{}, nil
	case opEq:
		return Eq{}, nil
	case opNe:
		return Ne{}, nil
	case opLt:
		return Lt{}, nil
	case opLe:
		return Le{}, nil
	case opGt:
		return Gt{}, nil
	case opGe:
		return Ge{}, nil
	case opAnd:
		return And{}, nil
	case opOr:
		return Or{}, nil
	case opXor:
		return Xor{}, nil
	case opNot:
		return Not{}, nil
	case opCast:
		scalarType, err := r.readScalarType()
		if err != nil {
			return nil, err
		}
		return Cast{Type: scalarType}, nil
	case opIf:
		return If{}, nil
	case opElse:
		return Else{}, nil
	case opEndIf:
		return EndIf{}, nil
	case opLoopBegin:
		iterations, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return LoopBegin{Iterations: iterations}, nil
	case opLoopEnd:
		return LoopEnd{}, nil
	case opCall:
		address, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		inputSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Call{Address: address, InputSize: inputSize}, nil
	case opReturn:
		outputSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return Return{OutputSize: outputSize}, nil
	case opCallLibrary:
		identifier, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		inputSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		outputSize, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return CallLibrary{
			Identifier: LibraryFunctionIdentifier(identifier),
			InputSize:  inputSize,
			OutputSize: outputSize,
		}, nil
	case opRequire:
		message, err := r.readString()
		if err != nil {
			return nil, err
		}
		return Require{Message: message}, nil
	case opDbg:
		format, err := r.readString()
		if err != nil {
			return nil, err
		}
		count, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		argTypes := make([]ScalarType, count)
		for i := 0; i < count; i++ {
			argTypes[i], err = r.readScalarType()
			if err != nil {
				return nil, err
			}
		}
		return Dbg{Format: format, ArgTypes: argTypes}, nil
	case opFileMarker:
		file, err := r.readString()
		if err != nil {
			return nil, err
		}
		return FileMarker{File: file}, nil
	case opFunctionMarker:
		function, err := r.readString()
		if err != nil {
			return nil, err
		}
		return FunctionMarker{Function: function}, nil
	case opLineMarker:
		line, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return LineMarker{Line: line}, nil
	case opColumnMarker:
		column, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		return ColumnMarker{Column: column}, nil
	}

	return nil, fmt.Errorf("unknown opcode %d", opcode)
}

// Encode serializes an application into the bytecode file format.
func Encode(application *Application) ([]byte, error) {
	w := &writer{}
	w.buffer.Write(Magic[:])

	var version [2]byte
	binary.BigEndian.PutUint16(version[:], Version)
	w.buffer.Write(version[:])

	w.writeByte(byte(application.Kind))

	metadata, err := json.Marshal(application)
	if err != nil {
		return nil, fmt.Errorf("encoding application metadata: %w", err)
	}
	w.writeUint32(len(metadata))
	w.buffer.Write(metadata)

	w.writeUint32(len(application.Instructions))
	for _, instruction := range application.Instructions {
		if err := encodeInstruction(w, instruction); err != nil {
			return nil, err
		}
	}
	return w.buffer.Bytes(), nil
}

// Decode parses a bytecode file back into an application.
func Decode(data []byte) (*Application, error) {
	r := &reader{data: data}

	magic, err := r.readBytes(len(Magic))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, fmt.Errorf("not a bytecode file: bad magic %q", magic)
	}

	versionBytes, err := r.readBytes(2)
	if err != nil {
		return nil, err
	}
	if version := binary.BigEndian.Uint16(versionBytes); version != Version {
		return nil, fmt.Errorf("unsupported bytecode version %d", version)
	}

	kind, err := r.readByte()
	if err != nil {
		return nil, err
	}

	metadataLength, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	metadata, err := r.readBytes(metadataLength)
	if err != nil {
		return nil, err
	}
	application := &Application{}
	if err := json.Unmarshal(metadata, application); err != nil {
		return nil, fmt.Errorf("decoding application metadata: %w", err)
	}
	application.Kind = ApplicationKind(kind)

	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	application.Instructions = make([]Instruction, count)
	for i := 0; i < count; i++ {
		application.Instructions[i], err = decodeInstruction(r)
		if err != nil {
			return nil, err
		}
	}
	return application, nil
}

package bytecode

import (
	"bytes"
	"math/big"
	"reflect"
	"testing"
)

func sampleApplication() *Application {
	return &Application{
		Name: "sample",
		Kind: KindContract,
		Methods: []Method{
			{
				Name:      "deposit",
				Address:   2,
				IsMutable: true,
				InputType: StructureType([]Field{
					{Name: "amount", Type: ScalarDataType(IntegerType(false, 64))},
				}),
				OutputType: UnitType(),
			},
		},
		Storage: []StorageField{
			{Name: "balance", Type: ScalarDataType(IntegerType(false, 64))},
		},
		Instructions: []Instruction{
			FunctionMarker{Function: "deposit"},
			LineMarker{Line: 4},
			Push{Value: big.NewInt(42), Type: IntegerType(false, 64)},
			Push{Value: big.NewInt(-7), Type: IntegerType(true, 16)},
			Load{Address: 0, Size: 1},
			StorageLoad{Index: 0, Size: 1},
			Add{},
			StorageStore{Index: 0, Size: 1},
			If{},
			Else{},
			EndIf{},
			LoopBegin{Iterations: 4},
			LoopEnd{},
			Call{Address: 17, InputSize: 2},
			CallLibrary{Identifier: LibraryTransfer, InputSize: 3, OutputSize: 0},
			Require{Message: "balance underflow"},
			Cast{Type: FieldType()},
			Slice{TotalSize: 4, Offset: 1, SliceSize: 2},
			Copy{},
			Neg{},
			BitwiseXor{},
			BitwiseShiftRight{},
			Lt{},
			Not{},
			LoadByIndex{Address: 3, TotalSize: 8, ElementSize: 2},
			StoreByIndex{Address: 3, TotalSize: 8, ElementSize: 2},
			StorageInit{Size: 1},
			StorageFetch{Size: 1},
			NoOperation{},
			FileMarker{File: "sample.zn"},
			ColumnMarker{Column: 9},
			Dbg{Format: "x = {}", ArgTypes: []ScalarType{IntegerType(false, 8)}},
			Return{OutputSize: 0},
		},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	application := sampleApplication()

	encoded, err := Encode(application)
	if err != nil {
		t.Fatalf("Encode raised an error: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode raised an error: %v", err)
	}

	if decoded.Name != application.Name || decoded.Kind != application.Kind {
		t.Errorf("header - got: %s %s", decoded.Name, decoded.Kind)
	}
	if !reflect.DeepEqual(decoded.Methods, application.Methods) {
		t.Errorf("methods - got: %+v, want: %+v", decoded.Methods, application.Methods)
	}
	if !reflect.DeepEqual(decoded.Storage, application.Storage) {
		t.Errorf("storage - got: %+v, want: %+v", decoded.Storage, application.Storage)
	}
	if len(decoded.Instructions) != len(application.Instructions) {
		t.Fatalf("instruction count - got: %d, want: %d",
			len(decoded.Instructions), len(application.Instructions))
	}
	for i := range application.Instructions {
		if !reflect.DeepEqual(decoded.Instructions[i], application.Instructions[i]) {
			t.Errorf("instruction %d - got: %#v, want: %#v",
				i, decoded.Instructions[i], application.Instructions[i])
		}
	}
}

func TestBinaryMagic(t *testing.T) {
	application := sampleApplication()
	encoded, err := Encode(application)
	if err != nil {
		t.Fatalf("Encode raised an error: %v", err)
	}
	if !bytes.HasPrefix(encoded, Magic[:]) {
		t.Errorf("encoded file does not start with the magic tag: % x", encoded[:8])
	}

	_, err = Decode([]byte("NOPE....."))
	if err == nil {
		t.Fatal("a bad magic tag was not rejected")
	}

	_, err = Decode(encoded[:10])
	if err == nil {
		t.Fatal("a truncated file was not rejected")
	}
}

func TestDisassembleMentionsEveryMethod(t *testing.T) {
	application := sampleApplication()
	listing := Disassemble(application)
	if !bytes.Contains([]byte(listing), []byte("deposit")) {
		t.Error("the disassembly does not mention the method")
	}
	if !bytes.Contains([]byte(listing), []byte("storage_store")) {
		t.Error("the disassembly does not mention the storage store")
	}
}

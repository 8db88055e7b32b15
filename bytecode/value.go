// value.go contains the typed JSON codec for method inputs, outputs and
// contract storage. Integers travel as decimal strings of arbitrary
// precision, booleans natively, arrays as JSON arrays, structures as objects
// whose key order is the declared field order, enumerations as the variant's
// integer string.

package bytecode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ValueError is the error type for typed JSON decoding failures.
type ValueError struct {
	Message string
}

func (e ValueError) Error() string {
	return e.Message
}

func valueErrorf(format string, args ...any) ValueError {
	return ValueError{Message: fmt.Sprintf(format, args...)}
}

// scalarBounds returns the inclusive lower and exclusive upper bound of a
// scalar type's value domain.
func scalarBounds(scalar ScalarType) (*big.Int, *big.Int) {
	switch scalar.Variant {
	case ScalarBoolean:
		return big.NewInt(0), big.NewInt(2)
	case ScalarField:
		return big.NewInt(0), fr.Modulus()
	default:
		if scalar.IsSigned {
			half := new(big.Int).Lsh(big.NewInt(1), uint(scalar.Bitlength-1))
			return new(big.Int).Neg(half), half
		}
		return big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), uint(scalar.Bitlength))
	}
}

// parseScalar decodes one JSON value against a scalar type. Oversized
// decimal strings are rejected with a casting overflow, never silently
// truncated.
func parseScalar(scalar ScalarType, raw any) (*big.Int, error) {
	if scalar.Variant == ScalarBoolean {
		value, ok := raw.(bool)
		if !ok {
			return nil, valueErrorf("expected a boolean, found %v", raw)
		}
		if value {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	}

	var text string
	switch typed := raw.(type) {
	case string:
		text = typed
	case json.Number:
		text = typed.String()
	case float64:
		text = new(big.Float).SetFloat64(typed).Text('f', 0)
	default:
		return nil, valueErrorf("expected an integer string, found %v", raw)
	}

	value, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, valueErrorf("'%s' is not a decimal integer", text)
	}

	lower, upper := scalarBounds(scalar)
	if value.Cmp(lower) < 0 || value.Cmp(upper) >= 0 {
		return nil, valueErrorf("value '%s' overflows when casting to type '%s'", text, scalar)
	}
	return value, nil
}

// ParseValue decodes a JSON-decoded value against a data type and returns
// the flattened scalar cells in declaration order.
func ParseValue(dataType Type, raw any) ([]*big.Int, error) {
	switch dataType.Variant {
	case TypeUnit:
		return nil, nil

	case TypeScalar:
		value, err := parseScalar(dataType.Scalar, raw)
		if err != nil {
			return nil, err
		}
		return []*big.Int{value}, nil

	case TypeEnumeration:
		value, err := parseScalar(dataType.Scalar, raw)
		if err != nil {
			return nil, err
		}
		for _, variant := range dataType.Variants {
			if variant == value.String() {
				return []*big.Int{value}, nil
			}
		}
		return nil, valueErrorf("'%s' is not a variant of the enumeration", value)

	case TypeArray:
		elements, ok := raw.([]any)
		if !ok {
			return nil, valueErrorf("expected an array, found %v", raw)
		}
		if len(elements) != dataType.Size {
			return nil, valueErrorf("expected %d array elements, found %d", dataType.Size, len(elements))
		}
		flat := []*big.Int{}
		for _, element := range elements {
			values, err := ParseValue(*dataType.Element, element)
			if err != nil {
				return nil, err
			}
			flat = append(flat, values...)
		}
		return flat, nil

	case TypeTuple:
		elements, ok := raw.([]any)
		if !ok {
			return nil, valueErrorf("expected a tuple array, found %v", raw)
		}
		if len(elements) != len(dataType.Elements) {
			return nil, valueErrorf("expected %d tuple elements, found %d", len(dataType.Elements), len(elements))
		}
		flat := []*big.Int{}
		for i, element := range elements {
			values, err := ParseValue(dataType.Elements[i], element)
			if err != nil {
				return nil, err
			}
			flat = append(flat, values...)
		}
		return flat, nil

	case TypeStructure:
		object, ok := raw.(map[string]any)
		if !ok {
			return nil, valueErrorf("expected an object, found %v", raw)
		}
		flat := []*big.Int{}
		for _, field := range dataType.Fields {
			member, exists := object[field.Name]
			if !exists {
				return nil, valueErrorf("field '%s' is missing", field.Name)
			}
			values, err := ParseValue(field.Type, member)
			if err != nil {
				return nil, err
			}
			flat = append(flat, values...)
		}
		return flat, nil
	}

	return nil, valueErrorf("cannot decode a value of type '%s'", dataType)
}

// ParseValueJSON decodes raw JSON text against a data type.
func ParseValueJSON(dataType Type, raw []byte) ([]*big.Int, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, valueErrorf("malformed JSON: %v", err)
	}
	return ParseValue(dataType, decoded)
}

// orderedMember is one key of an order-preserving JSON object.
type orderedMember struct {
	key   string
	value any
}

// orderedObject marshals its members in insertion order; plain Go maps are
// never used for struct values because their iteration order is undefined.
type orderedObject []orderedMember

func (object orderedObject) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, member := range object {
		if i > 0 {
			buffer.WriteByte(',')
		}
		key, err := json.Marshal(member.key)
		if err != nil {
			return nil, err
		}
		buffer.Write(key)
		buffer.WriteByte(':')
		value, err := json.Marshal(member.value)
		if err != nil {
			return nil, err
		}
		buffer.Write(value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// RenderValue encodes flattened scalar cells back into the JSON shape of the
// data type. It consumes exactly SizeInCells cells and returns a value that
// marshals with deterministic key order.
func RenderValue(dataType Type, flat []*big.Int) (any, error) {
	size := dataType.SizeInCells()
	if len(flat) < size {
		return nil, valueErrorf("expected %d cells for type '%s', found %d", size, dataType, len(flat))
	}

	switch dataType.Variant {
	case TypeUnit:
		return nil, nil

	case TypeScalar, TypeEnumeration:
		if dataType.Scalar.Variant == ScalarBoolean {
			return flat[0].Sign() != 0, nil
		}
		return flat[0].String(), nil

	case TypeArray:
		elementSize := dataType.Element.SizeInCells()
		result := make([]any, dataType.Size)
		for i := 0; i < dataType.Size; i++ {
			element, err := RenderValue(*dataType.Element, flat[i*elementSize:])
			if err != nil {
				return nil, err
			}
			result[i] = element
		}
		return result, nil

	case TypeTuple:
		result := make([]any, len(dataType.Elements))
		offset := 0
		for i, elementType := range dataType.Elements {
			element, err := RenderValue(elementType, flat[offset:])
			if err != nil {
				return nil, err
			}
			result[i] = element
			offset += elementType.SizeInCells()
		}
		return result, nil

	case TypeStructure:
		result := make(orderedObject, 0, len(dataType.Fields))
		offset := 0
		for _, field := range dataType.Fields {
			member, err := RenderValue(field.Type, flat[offset:])
			if err != nil {
				return nil, err
			}
			result = append(result, orderedMember{key: field.Name, value: member})
			offset += field.Type.SizeInCells()
		}
		return result, nil
	}

	return nil, valueErrorf("cannot encode a value of type '%s'", dataType)
}

// RenderValueJSON encodes flattened scalar cells as JSON text.
func RenderValueJSON(dataType Type, flat []*big.Int) ([]byte, error) {
	rendered, err := RenderValue(dataType, flat)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rendered)
}

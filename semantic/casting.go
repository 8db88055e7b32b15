// casting.go contains the static casting rules. Only widening integer
// casts and casts into the field are permitted; everything else loses data
// or makes no sense and is rejected.

package semantic

// ValidateCasting checks whether a `from as to` cast is permitted.
//
// Integer sources may widen to any integer of at least the same bitlength
// regardless of signedness, and may always go to the field. Sources at or
// above the maximum ordinary bitlength cannot be cast between integer
// types. Enumerations cast like unsigned integers of their bitlength and
// lose their identity. Identical types always cast.
func ValidateCasting(from Type, to Type) error {
	if from.Equals(to) {
		return nil
	}

	switch from.Variant {
	case VariantIntegerUnsigned, VariantIntegerSigned, VariantEnumeration:
		switch to.Variant {
		case VariantIntegerUnsigned, VariantIntegerSigned:
			if from.Bitlength > BitlengthMaxInt-BitlengthByte || from.Bitlength > to.Bitlength {
				return errorf(KindDataLossPossible,
					"cannot cast '%s' to '%s': data loss is possible", from, to)
			}
			return nil
		case VariantField:
			return nil
		default:
			return errorf(KindToInvalidType,
				"cannot cast '%s' to non-scalar type '%s'", from, to)
		}
	case VariantField:
		if to.Variant == VariantField {
			return nil
		}
		return errorf(KindToInvalidType,
			"cannot cast the 'field' type to '%s'", to)
	}

	return errorf(KindFromInvalidType,
		"the type '%s' cannot be cast", from)
}

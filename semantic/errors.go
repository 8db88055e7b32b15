package semantic

import (
	"fmt"

	"github.com/ReggieRumsfeld/zinc/token"
)

// Error kinds. Each kind is a distinct failure and is never conflated with
// another; tests match on kinds, diagnostics render kind and message.
const (
	KindTypesMismatch          = "TypesMismatch"
	KindOverflowAddition       = "OverflowAddition"
	KindOverflowSubtraction    = "OverflowSubtraction"
	KindOverflowMultiplication = "OverflowMultiplication"
	KindOverflowDivision       = "OverflowDivision"
	KindOverflowRemainder      = "OverflowRemainder"
	KindOverflowNegation       = "OverflowNegation"
	KindOverflowCasting        = "OverflowCasting"
	KindUnsignedNegative       = "UnsignedNegative"
	KindIntegerTooLarge        = "IntegerTooLarge"
	KindZeroDivision           = "ZeroDivision"
	KindZeroRemainder          = "ZeroRemainder"
	KindForbiddenSignedBitwise = "ForbiddenSignedBitwise"
	KindForbiddenFieldBitwise  = "ForbiddenFieldBitwise"
	KindForbiddenFieldDivision = "ForbiddenFieldDivision"
	KindForbiddenFieldRemainder = "ForbiddenFieldRemainder"
	KindForbiddenFieldNegation = "ForbiddenFieldNegation"
	KindToInvalidType          = "ToInvalidType"
	KindFromInvalidType        = "FromInvalidType"
	KindDataLossPossible       = "DataLossPossible"
	KindDuplicateIdentifier    = "DuplicateIdentifier"
	KindUnresolvedIdentifier   = "UnresolvedIdentifier"
	KindNotAType               = "NotAType"
	KindNotAValue              = "NotAValue"
	KindNotMutable             = "NotMutable"
	KindMethodMissing          = "MethodMissing"
	KindArgumentCount          = "ArgumentCount"
	KindArgumentType           = "ArgumentType"
	KindConstantExpected       = "ConstantExpected"
	KindBranchTypesMismatch    = "BranchTypesMismatch"
	KindMatchNotExhaustive     = "MatchNotExhaustive"
	KindInvalidPlace           = "InvalidPlace"
)

// Error is the semantic analysis error: a distinct kind, a source location
// and a rendered message.
type Error struct {
	Location token.Location
	Kind     string
	Message  string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: semantic: %s: %s", e.Location, e.Kind, e.Message)
}

// errorf builds a locationless Error; the analyzer attaches the location of
// the offending element on the way out.
func errorf(kind string, format string, args ...any) Error {
	return Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// errorAt builds an Error carrying its source location.
func errorAt(location token.Location, kind string, format string, args ...any) Error {
	return Error{
		Location: location,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

// withLocation sets the location on a semantic Error that does not carry one
// yet. Other error types pass through untouched.
func withLocation(err error, location token.Location) error {
	if err == nil {
		return nil
	}
	if typed, ok := err.(Error); ok && typed.Location == (token.Location{}) {
		typed.Location = location
		return typed
	}
	return err
}

// typesMismatch renders the shared two-type mismatch message for the given
// operator name, e.g. "TypesMismatchEquals".
func typesMismatch(operator string, first, second fmt.Stringer) Error {
	return errorf(KindTypesMismatch+operator,
		"'%s' and '%s' are not of the same type", first, second)
}

// Package pricing computes registration and renewal fees. It holds no state;
// the base fee and TLD multiplier are supplied by the caller from committed
// ledger state.
package pricing

import (
	"math/bits"

	"nameledger/internal/registry/models"
	dErrors "nameledger/pkg/domain-errors"
)

// Multipliers are expressed in hundredths: 100 = 1.00x.
const (
	scale        = 10000
	minDiscount  = 55
	fullDiscount = 100
	perYearStep  = 5
)

// lengthTable maps a name-length bucket (1..5, where 5 means "5 or more") to
// its fee multiplier.
var lengthTable = [...]uint64{
	1: 2000,
	2: 1000,
	3: 500,
	4: 200,
	5: 100,
}

// LengthMultiplier returns the multiplier for the byte length of name.
// Callers reject empty names before asking.
func LengthMultiplier(name string) uint64 {
	bucket := min(len(name), len(lengthTable)-1)
	return lengthTable[bucket]
}

// YearDiscount returns the percentage of the undiscounted fee charged for a
// term: 5 points off per year beyond the first, floored at 55.
func YearDiscount(termYears int) uint64 {
	discount := fullDiscount
	if termYears > 1 {
		discount -= termYears * perYearStep
	}
	return uint64(max(minDiscount, discount))
}

// ValidateTerm checks 1 <= termYears <= 10.
func ValidateTerm(termYears int) error {
	if termYears < models.MinTermYears || termYears > models.MaxTermYears {
		return dErrors.New(dErrors.CodeInvalidTerm, "term must be between 1 and 10 years")
	}
	return nil
}

// ComputeFee returns
//
//	baseFee * lengthMultiplier * tldMultiplier * termYears * yearDiscount / 10000
//
// multiplied left to right with one truncating division at the end. A product
// that does not fit in 64 bits fails with invalid_input rather than wrapping.
func ComputeFee(baseFee models.Amount, name string, tld *models.TldEntry, termYears int) (models.Amount, error) {
	if name == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if tld == nil || tld.FeeMultiplier == 0 {
		return 0, dErrors.New(dErrors.CodeUnsupportedTld, "tld is not supported")
	}
	if err := ValidateTerm(termYears); err != nil {
		return 0, err
	}

	fee := uint64(baseFee)
	for _, factor := range []uint64{
		LengthMultiplier(name),
		tld.FeeMultiplier,
		uint64(termYears),
		YearDiscount(termYears),
	} {
		hi, lo := bits.Mul64(fee, factor)
		if hi != 0 {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "fee overflow")
		}
		fee = lo
	}
	return models.Amount(fee / scale), nil
}

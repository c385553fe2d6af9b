package block

import (
	"errors"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
)

// MaxAmount is the total supply expressed in raw units.
const MaxAmount Amount = 18_000_000_000_000_000_000

// Set of errors for amount arithmetic.
var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
)

// Amount represents a balance or transfer in raw units.
type Amount uint64

// Add returns the sum of the amounts. It fails when the result can't be
// represented or exceeds the total supply.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, overflow := math.SafeAdd(uint64(a), uint64(b))
	if overflow || Amount(sum) > MaxAmount {
		return 0, ErrAmountOverflow
	}

	return Amount(sum), nil
}

// Sub returns the difference of the amounts. It fails when b is
// larger than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, underflow := math.SafeSub(uint64(a), uint64(b))
	if underflow {
		return 0, ErrAmountUnderflow
	}

	return Amount(diff), nil
}

// String implements the fmt.Stringer interface.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

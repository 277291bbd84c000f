package fees

import (
	"github.com/holiman/uint256"

	nativecommon "posichain/native/common"
)

const (
	// DomainTransfer identifies the reflection fee charged on token transfers.
	DomainTransfer = "transfer"
	// DomainDeposit identifies the staking pool deposit fee.
	DomainDeposit = "deposit"
)

// MaxBps bounds every fee rate.
const MaxBps = nativecommon.BasisPoints

// ApplyInput captures the context required to evaluate the fee obligation for
// a single movement of funds.
type ApplyInput struct {
	Domain string
	Gross  *uint256.Int
	Bps    uint64
	// Exempt skips the fee entirely (exempt parties, airdrops, sale payouts).
	Exempt bool
}

// ApplyResult summarises the computed fee and the net amount delivered.
type ApplyResult struct {
	Domain string
	Fee    *uint256.Int
	Net    *uint256.Int
}

// Apply evaluates the fee for the supplied input. Fees round down, so the
// recipient is never short-changed by rounding; a rate at or above 100% takes
// the whole gross amount.
func Apply(input ApplyInput) (ApplyResult, error) {
	result := ApplyResult{Domain: input.Domain, Fee: nativecommon.Zero(), Net: nativecommon.Clone(input.Gross)}
	if result.Net.IsZero() || input.Exempt || input.Bps == 0 {
		return result, nil
	}
	if input.Bps >= MaxBps {
		result.Fee = result.Net
		result.Net = nativecommon.Zero()
		return result, nil
	}
	fee, err := nativecommon.Bps(result.Net, input.Bps)
	if err != nil {
		return ApplyResult{}, err
	}
	if fee.IsZero() {
		return result, nil
	}
	net, err := nativecommon.Sub(result.Net, fee)
	if err != nil {
		return ApplyResult{}, err
	}
	result.Fee = fee
	result.Net = net
	return result, nil
}

package events

import (
	"github.com/holiman/uint256"

	"posichain/core/types"
	"posichain/crypto"
)

const (
	// TypeTransfer is emitted for every token balance movement between accounts.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an allowance is set.
	TypeApproval = "token.approval"
)

// Transfer records a movement of real units. Fee is the part retained for
// redistribution and is zero for fee-free paths.
type Transfer struct {
	Asset  string
	From   crypto.Address
	To     crypto.Address
	Amount *uint256.Int
	Fee    *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	if from := formatAddress(e.From); from != "" {
		attrs["from"] = from
	}
	if to := formatAddress(e.To); to != "" {
		attrs["to"] = to
	}
	attrs["amount"] = formatAmount(e.Amount)
	if e.Fee != nil && !e.Fee.IsZero() {
		attrs["fee"] = formatAmount(e.Fee)
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

// Approval records an allowance update.
type Approval struct {
	Asset   string
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *uint256.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"asset":   normalizeAsset(e.Asset),
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"amount":  formatAmount(e.Amount),
	}}
}

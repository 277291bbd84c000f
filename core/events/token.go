package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"posichain/core/types"
	"posichain/crypto"
)

const (
	// TypeReflection is emitted when real value is folded back into the
	// included holder pool (transfer fees and donations).
	TypeReflection = "token.reflection"
	// TypeTransferStatusChanged is emitted when the bot keeper pauses or
	// resumes transfers.
	TypeTransferStatusChanged = "token.transferStatusChanged"
	// TypeAccountExclusion is emitted when an account switches between the
	// included and excluded accounting views.
	TypeAccountExclusion = "token.accountExclusion"
	// TypeRoleChanged is emitted when an administrative role is reassigned.
	TypeRoleChanged = "token.roleChanged"

	ReflectionReasonFee      = "fee"
	ReflectionReasonDonation = "donation"
)

// Reflection records real units redistributed to included holders.
type Reflection struct {
	Token  string
	Source crypto.Address
	Amount *uint256.Int
	Reason string
}

func (Reflection) EventType() string { return TypeReflection }

func (e Reflection) Event() *types.Event {
	return &types.Event{Type: TypeReflection, Attributes: map[string]string{
		"token":  normalizeAsset(e.Token),
		"source": formatAddress(e.Source),
		"amount": formatAmount(e.Amount),
		"reason": e.Reason,
	}}
}

// TransferStatusChanged records a pause toggle as (previous, current).
type TransferStatusChanged struct {
	Token    string
	Previous bool
	Current  bool
}

func (TransferStatusChanged) EventType() string { return TypeTransferStatusChanged }

func (e TransferStatusChanged) Event() *types.Event {
	return &types.Event{Type: TypeTransferStatusChanged, Attributes: map[string]string{
		"token":    normalizeAsset(e.Token),
		"previous": strconv.FormatBool(e.Previous),
		"current":  strconv.FormatBool(e.Current),
	}}
}

// AccountExclusion records a switch between accounting views.
type AccountExclusion struct {
	Token    string
	Account  crypto.Address
	Excluded bool
	Balance  *uint256.Int
}

func (AccountExclusion) EventType() string { return TypeAccountExclusion }

func (e AccountExclusion) Event() *types.Event {
	return &types.Event{Type: TypeAccountExclusion, Attributes: map[string]string{
		"token":    normalizeAsset(e.Token),
		"account":  formatAddress(e.Account),
		"excluded": strconv.FormatBool(e.Excluded),
		"balance":  formatAmount(e.Balance),
	}}
}

// RoleChanged records an administrative reassignment.
type RoleChanged struct {
	Token   string
	Role    string
	Account crypto.Address
}

func (RoleChanged) EventType() string { return TypeRoleChanged }

func (e RoleChanged) Event() *types.Event {
	return &types.Event{Type: TypeRoleChanged, Attributes: map[string]string{
		"token":   normalizeAsset(e.Token),
		"role":    e.Role,
		"account": formatAddress(e.Account),
	}}
}

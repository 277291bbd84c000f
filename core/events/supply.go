package events

import (
	"strings"

	"github.com/holiman/uint256"

	"posichain/core/types"
)

const (
	// TypeTokenSupply is emitted whenever a token supply changes.
	TypeTokenSupply = "token.supply"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
	// SupplyReasonAirdrop identifies the airdrop reserve registration.
	SupplyReasonAirdrop = "airdrop"
	// SupplyReasonSale identifies the sale reserve registration.
	SupplyReasonSale = "sale"
	// SupplyReasonGenesis identifies the initial supply.
	SupplyReasonGenesis = "genesis"
)

// TokenSupply captures a supply delta for a fungible token.
type TokenSupply struct {
	Token  string
	Total  *uint256.Int
	Delta  *uint256.Int
	Reason string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{}
	token := normalizeAsset(e.Token)
	if token == "" {
		token = "UNKNOWN"
	}
	attrs["token"] = token
	attrs["total"] = formatAmount(e.Total)

	if e.Delta != nil {
		attrs["delta"] = e.Delta.Dec()
	}

	reason := strings.TrimSpace(e.Reason)
	if reason != "" {
		attrs["reason"] = reason
	}

	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}

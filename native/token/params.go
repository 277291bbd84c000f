package token

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"posichain/crypto"
	"posichain/native/fees"
)

const (
	DefaultName           = "Position Token"
	DefaultSymbol         = "POSI"
	DefaultDecimals       = 18
	DefaultTransferFeeBps = 100
)

var (
	// DefaultInitialSupply is 10,000,000 whole tokens.
	DefaultInitialSupply = wholeTokens(10_000_000)
	// DefaultAirdropReserve is 1,000,000 whole tokens.
	DefaultAirdropReserve = wholeTokens(1_000_000)
	// DefaultSaleReserve is 5,000,000 whole tokens.
	DefaultSaleReserve = wholeTokens(5_000_000)
	// DefaultReflectionScale is the number of reflected units issued per real
	// unit at genesis.
	DefaultReflectionScale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(36))
)

func wholeTokens(n uint64) *uint256.Int {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(DefaultDecimals))
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

// Params are the static token settings fixed at construction. Amounts are in
// real base units.
type Params struct {
	Name            string
	Symbol          string
	Decimals        uint8
	InitialSupply   *uint256.Int
	TransferFeeBps  uint64
	AirdropReserve  *uint256.Int
	SaleReserve     *uint256.Int
	ReflectionScale *uint256.Int
	// AirdropCustody and SaleCustody hold the registered reserves. They are
	// excluded and exempt from genesis on.
	AirdropCustody crypto.Address
	SaleCustody    crypto.Address
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Name:            DefaultName,
		Symbol:          DefaultSymbol,
		Decimals:        DefaultDecimals,
		InitialSupply:   DefaultInitialSupply.Clone(),
		TransferFeeBps:  DefaultTransferFeeBps,
		AirdropReserve:  DefaultAirdropReserve.Clone(),
		SaleReserve:     DefaultSaleReserve.Clone(),
		ReflectionScale: DefaultReflectionScale.Clone(),
	}
}

// normalized fills unset fields with defaults and derives custody addresses
// from the symbol.
func (p Params) normalized() Params {
	out := p
	out.Symbol = strings.ToUpper(strings.TrimSpace(out.Symbol))
	if out.Symbol == "" {
		out.Symbol = DefaultSymbol
	}
	if strings.TrimSpace(out.Name) == "" {
		out.Name = DefaultName
	}
	if out.InitialSupply == nil {
		out.InitialSupply = DefaultInitialSupply.Clone()
	}
	if out.AirdropReserve == nil {
		out.AirdropReserve = DefaultAirdropReserve.Clone()
	}
	if out.SaleReserve == nil {
		out.SaleReserve = DefaultSaleReserve.Clone()
	}
	if out.ReflectionScale == nil || out.ReflectionScale.IsZero() {
		out.ReflectionScale = DefaultReflectionScale.Clone()
	}
	if out.AirdropCustody.IsZero() {
		out.AirdropCustody = crypto.ModuleAddress(strings.ToLower(out.Symbol) + "/airdrop")
	}
	if out.SaleCustody.IsZero() {
		out.SaleCustody = crypto.ModuleAddress(strings.ToLower(out.Symbol) + "/sale")
	}
	return out
}

// Validate checks the parameter bounds.
func (p Params) Validate() error {
	if p.TransferFeeBps > fees.MaxBps {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, p.TransferFeeBps)
	}
	if p.AirdropCustody == p.SaleCustody && !p.AirdropCustody.IsZero() {
		return fmt.Errorf("token: airdrop and sale custody must differ")
	}
	return nil
}

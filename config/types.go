package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"posichain/crypto"
	"posichain/native/staking"
	"posichain/native/token"
)

// Token configures the reflection token. Amounts are decimal strings in
// base units so they survive TOML's 64-bit integers.
type Token struct {
	Name             string `toml:"Name"`
	Symbol           string `toml:"Symbol"`
	Decimals         uint8  `toml:"Decimals"`
	InitialSupply    string `toml:"InitialSupply"`
	TransferFeeBps   uint64 `toml:"TransferFeeBps"`
	AirdropReserve   string `toml:"AirdropReserve"`
	SaleReserve      string `toml:"SaleReserve"`
	ReflectionScale  string `toml:"ReflectionScale"`
	SaleRegistryFile string `toml:"SaleRegistryFile,omitempty"`
}

func DefaultToken() Token {
	params := token.DefaultParams()
	return Token{
		Name:            params.Name,
		Symbol:          params.Symbol,
		Decimals:        params.Decimals,
		InitialSupply:   params.InitialSupply.Dec(),
		TransferFeeBps:  params.TransferFeeBps,
		AirdropReserve:  params.AirdropReserve.Dec(),
		SaleReserve:     params.SaleReserve.Dec(),
		ReflectionScale: params.ReflectionScale.Dec(),
	}
}

// Params converts the section into token parameters.
func (t Token) Params() (token.Params, error) {
	params := token.Params{
		Name:           t.Name,
		Symbol:         t.Symbol,
		Decimals:       t.Decimals,
		TransferFeeBps: t.TransferFeeBps,
	}
	var err error
	if params.InitialSupply, err = parseAmount("token.InitialSupply", t.InitialSupply); err != nil {
		return token.Params{}, err
	}
	if params.AirdropReserve, err = parseAmount("token.AirdropReserve", t.AirdropReserve); err != nil {
		return token.Params{}, err
	}
	if params.SaleReserve, err = parseAmount("token.SaleReserve", t.SaleReserve); err != nil {
		return token.Params{}, err
	}
	if params.ReflectionScale, err = parseAmount("token.ReflectionScale", t.ReflectionScale); err != nil {
		return token.Params{}, err
	}
	return params, nil
}

// Staking configures the staking manager.
type Staking struct {
	RewardPerUnit         string `toml:"RewardPerUnit"`
	StartUnit             uint64 `toml:"StartUnit"`
	DevShareBps           uint64 `toml:"DevShareBps"`
	ReferralCommissionBps uint64 `toml:"ReferralCommissionBps"`
	MaxHarvestInterval    uint64 `toml:"MaxHarvestInterval"`
	MaxDepositFeeBps      uint64 `toml:"MaxDepositFeeBps"`
}

func DefaultStaking() Staking {
	cfg := staking.DefaultConfig()
	return Staking{
		RewardPerUnit:         cfg.RewardPerUnit.Dec(),
		StartUnit:             cfg.StartUnit,
		DevShareBps:           cfg.DevShareBps,
		ReferralCommissionBps: cfg.ReferralCommissionBps,
		MaxHarvestInterval:    cfg.MaxHarvestInterval,
		MaxDepositFeeBps:      cfg.MaxDepositFeeBps,
	}
}

// EngineConfig converts the section into a staking configuration bound to
// the configured roles.
func (s Staking) EngineConfig(roles Roles) (staking.Config, error) {
	perUnit, err := parseAmount("staking.RewardPerUnit", s.RewardPerUnit)
	if err != nil {
		return staking.Config{}, err
	}
	if perUnit == nil {
		perUnit = staking.DefaultRewardPerUnit.Clone()
	}
	return staking.Config{
		Manager:               roles.StakingManager,
		Owner:                 roles.Owner,
		DevAddress:            roles.Dev,
		FeeAddress:            roles.Fee,
		RewardPerUnit:         perUnit,
		StartUnit:             s.StartUnit,
		DevShareBps:           s.DevShareBps,
		ReferralCommissionBps: s.ReferralCommissionBps,
		MaxHarvestInterval:    s.MaxHarvestInterval,
		MaxDepositFeeBps:      s.MaxDepositFeeBps,
	}, nil
}

// Roles assigns the privileged accounts. Addresses accept bech32 or hex.
type Roles struct {
	Owner          crypto.Address `toml:"Owner"`
	BotKeeper      crypto.Address `toml:"BotKeeper"`
	InsuranceFund  crypto.Address `toml:"InsuranceFund"`
	StakingManager crypto.Address `toml:"StakingManager"`
	SaleAdmin      crypto.Address `toml:"SaleAdmin"`
	Dev            crypto.Address `toml:"Dev"`
	Fee            crypto.Address `toml:"Fee"`
	// InitialHolder receives the initial supply; the owner when unset.
	InitialHolder crypto.Address `toml:"InitialHolder"`
}

// TokenRoles returns the token's view of the roles.
func (r Roles) TokenRoles() token.Roles {
	return token.Roles{
		Owner:          r.Owner,
		BotKeeper:      r.BotKeeper,
		InsuranceFund:  r.InsuranceFund,
		StakingManager: r.StakingManager,
		SaleAdmin:      r.SaleAdmin,
	}
}

// Logging configures the structured logger.
type Logging struct {
	Level string `toml:"Level"`
	Env   string `toml:"Env"`
	// File enables rotated file output next to stdout.
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

func DefaultLogging() Logging {
	return Logging{Level: "info", Env: "local", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28}
}

// Pauses halts whole modules.
type Pauses struct {
	Token   bool `toml:"Token"`
	Staking bool `toml:"Staking"`
}

// IsPaused implements the module pause view.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "token":
		return p.Token
	case "staking":
		return p.Staking
	default:
		return false
	}
}

func parseAmount(field, value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return amount, nil
}

// Indexer configures the SQL event index. An empty DSN disables it.
type Indexer struct {
	DSN string `toml:"DSN"`
}

// Gateway configures the HTTP query gateway.
type Gateway struct {
	ListenAddress          string   `toml:"ListenAddress"`
	RequestsPerMinute      float64  `toml:"RequestsPerMinute"`
	Burst                  int      `toml:"Burst"`
	AdminRequestsPerMinute float64  `toml:"AdminRequestsPerMinute"`
	AllowedOrigins         []string `toml:"AllowedOrigins"`
	// JWTSecretEnv names the environment variable holding the HMAC secret
	// for admin tokens. Admin routes are disabled while it is unset.
	JWTSecretEnv string `toml:"JWTSecretEnv"`
	JWTIssuer    string `toml:"JWTIssuer"`
	JWTAudience  string `toml:"JWTAudience"`
}

func DefaultGateway() Gateway {
	return Gateway{
		ListenAddress:          "127.0.0.1:8645",
		RequestsPerMinute:      600,
		Burst:                  50,
		AdminRequestsPerMinute: 30,
		JWTSecretEnv:           "POSI_GATEWAY_JWT_SECRET",
	}
}

// Telemetry configures OTLP export for the gateway.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS form "k=v,k2=v2".
	Headers string `toml:"Headers"`
	Traces  bool   `toml:"Traces"`
	Metrics bool   `toml:"Metrics"`
}

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"posichain/native/fees"
)

// Validate checks bounds and required fields.
func (c *Config) Validate() error {
	if c.Roles.Owner.IsZero() {
		return fmt.Errorf("roles: Owner must be set")
	}
	if c.Roles.StakingManager.IsZero() {
		return fmt.Errorf("roles: StakingManager must be set")
	}
	if c.Token.TransferFeeBps > fees.MaxBps {
		return fmt.Errorf("token: TransferFeeBps %d exceeds %d", c.Token.TransferFeeBps, fees.MaxBps)
	}
	if _, err := c.Token.Params(); err != nil {
		return err
	}
	for name, bps := range map[string]uint64{
		"DevShareBps":           c.Staking.DevShareBps,
		"ReferralCommissionBps": c.Staking.ReferralCommissionBps,
		"MaxDepositFeeBps":      c.Staking.MaxDepositFeeBps,
	} {
		if bps > fees.MaxBps {
			return fmt.Errorf("staking: %s %d exceeds %d", name, bps, fees.MaxBps)
		}
	}
	if _, err := c.Staking.EngineConfig(c.Roles); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if dsn := strings.TrimSpace(c.Indexer.DSN); dsn != "" &&
		!strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("indexer: unsupported DSN scheme in %q", dsn)
	}
	if c.Gateway.RequestsPerMinute < 0 || c.Gateway.AdminRequestsPerMinute < 0 || c.Gateway.Burst < 0 {
		return fmt.Errorf("gateway: rate limits must not be negative")
	}
	return nil
}

// ParseLevel maps a level name onto slog levels. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", level)
	}
}

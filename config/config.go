package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"posichain/crypto"
)

// Config is the operator configuration of a ledger data directory.
type Config struct {
	DataDir              string `toml:"DataDir"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`

	Token   Token   `toml:"token"`
	Staking Staking `toml:"staking"`
	Roles   Roles   `toml:"roles"`
	Logging Logging `toml:"logging"`
	Pauses  Pauses  `toml:"pauses"`
	Indexer Indexer `toml:"indexer"`
	Gateway Gateway `toml:"gateway"`

	Telemetry Telemetry `toml:"telemetry"`
}

// keystoreStrength is the scrypt cost of generated operator keystores.
var keystoreStrength = crypto.StandardScrypt

// PassphraseFunc supplies the passphrase protecting a generated operator
// keystore.
type PassphraseFunc func() (string, error)

// Load loads the configuration from the given path, creating a default file
// and operator keystore when none exists. A nil passphrase func encrypts the
// generated keystore with an empty passphrase.
func Load(path string, passphrase PassphraseFunc) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, passphrase)
	}
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir(path)
	}
	if strings.TrimSpace(cfg.OperatorKeystorePath) == "" {
		cfg.OperatorKeystorePath = defaultKeystorePath(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a configuration with every section at its default and no
// role addresses assigned.
func Default() *Config {
	return &Config{
		Token:   DefaultToken(),
		Staking: DefaultStaking(),
		Logging: DefaultLogging(),
		Gateway: DefaultGateway(),
	}
}

// createDefault generates an operator key, assigns it every administrative
// role and saves the resulting configuration.
func createDefault(path string, passphrase PassphraseFunc) (*Config, error) {
	secret := ""
	if passphrase != nil {
		var err error
		if secret, err = passphrase(); err != nil {
			return nil, err
		}
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.DataDir = defaultDataDir(path)
	cfg.OperatorKeystorePath = defaultKeystorePath(path)
	cfg.Indexer.DSN = "sqlite://" + filepath.Join(filepath.Dir(path), "events.db")
	if err := crypto.SaveToKeystoreWithStrength(cfg.OperatorKeystorePath, key, secret, keystoreStrength); err != nil {
		return nil, err
	}
	operator := key.PubKey().Address()
	cfg.Roles = Roles{
		Owner:          operator,
		BotKeeper:      operator,
		InsuranceFund:  operator,
		StakingManager: crypto.ModuleAddress("staking"),
		SaleAdmin:      operator,
		Dev:            operator,
		Fee:            operator,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OperatorKey decrypts the operator keystore.
func (c *Config) OperatorKey(passphrase string) (*crypto.PrivateKey, error) {
	return crypto.LoadFromKeystore(c.OperatorKeystorePath, passphrase)
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "operator.keystore")
}

func defaultDataDir(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "posi-data")
}

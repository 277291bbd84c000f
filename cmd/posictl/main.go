package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"posichain/cmd/internal/passphrase"
	"posichain/config"
	"posichain/core"
	"posichain/crypto"
	"posichain/native/token"
	"posichain/observability/logging"
	"posichain/observability/metrics"
	"posichain/services/indexer"
	"posichain/storage"
)

const (
	defaultConfig  = "./posi/config.toml"
	defaultPassEnv = "POSI_PASSPHRASE"
)

// session is an opened ledger plus the identity the command acts as.
type session struct {
	cfg    *config.Config
	ledger *core.Ledger
	caller crypto.Address
	logger *slog.Logger
	// events is nil when the index is disabled.
	events    *indexer.Store
	collector *indexer.Collector
	close     func()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("posictl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", defaultConfig, "Path to the ledger config file")
	keystorePath := global.String("keystore", "", "Keystore of the acting account (operator keystore when empty)")
	passEnv := global.String("pass-env", defaultPassEnv, "Environment variable holding the keystore passphrase")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return 1
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 1
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		printUsage(stderr)
		return 1
	}
	if cmd.standalone != nil {
		if err := cmd.standalone(rest[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	s, err := openSession(*configPath, *keystorePath, *passEnv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()
	if err := cmd.run(s, rest[1:], stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func openSession(configPath, keystorePath, passEnv string) (*session, error) {
	source := passphrase.NewSource(passEnv, "operator")
	cfg, err := config.Load(configPath, source.Get)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger, logCloser := logging.Setup("posictl", cfg.Logging.Env, logging.Options{
		Level:      level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     os.Stderr,
	})
	closers := []func() error{logCloser.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	key, err := loadIdentity(cfg, keystorePath, source)
	if err != nil {
		cleanup()
		return nil, err
	}

	collector := &indexer.Collector{}
	opts := core.Options{Logger: logger, Metrics: metrics.Ledger(), Emitter: collector}
	if path := strings.TrimSpace(cfg.Token.SaleRegistryFile); path != "" {
		registry, err := token.LoadStaticRegistry(path)
		if err != nil {
			cleanup()
			return nil, err
		}
		opts.Registry = registry
	}

	var store *indexer.Store
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		store, err = indexer.Open(dsn)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("open event index: %w", err)
		}
		closers = append(closers, store.Close)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	closers = append(closers, func() error { db.Close(); return nil })
	ledger, err := core.NewLedger(cfg, db, opts)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &session{
		cfg:       cfg,
		ledger:    ledger,
		caller:    key.PubKey().Address(),
		logger:    logger,
		events:    store,
		collector: collector,
		close:     cleanup,
	}, nil
}

func loadIdentity(cfg *config.Config, keystorePath string, source *passphrase.Source) (*crypto.PrivateKey, error) {
	pass, err := source.Get()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(keystorePath) == "" {
		return cfg.OperatorKey(pass)
	}
	return crypto.LoadFromKeystore(keystorePath, pass)
}

// persist commits pending ledger writes and indexes the events they produced.
func (s *session) persist() (int, error) {
	n, err := s.ledger.Commit()
	if err != nil {
		return 0, err
	}
	evs := s.collector.Drain()
	if s.events == nil || len(evs) == 0 {
		return n, nil
	}
	if err := s.events.Record(s.ledger.Height(), evs); err != nil {
		return n, fmt.Errorf("index events: %w", err)
	}
	return n, nil
}

// commit persists a successful mutation.
func (s *session) commit(stdout io.Writer) error {
	n, err := s.persist()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "committed %d records at height %d\n", n, s.ledger.Height())
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: posictl [--config path] [--keystore path] [--pass-env VAR] <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-20s %s\n", name, commands[name].usage)
	}
}

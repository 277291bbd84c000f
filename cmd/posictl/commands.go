package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"posichain/cmd/internal/passphrase"
	"posichain/crypto"
	"posichain/native/token"
	"posichain/services/indexer"
)

type command struct {
	usage string
	run   func(s *session, args []string, stdout io.Writer) error
	// standalone commands run without opening a ledger.
	standalone func(args []string, stdout io.Writer) error
}

var commandOrder = []string{
	"keygen", "init", "balance", "supply", "rate",
	"transfer", "approve", "mint", "burn", "donate",
	"exclude", "include", "pause",
	"airdrop-register", "airdrop", "sale-register", "sale",
	"pool-add", "deposit", "withdraw", "emergency-withdraw", "pending", "update-pool",
	"advance", "history", "serve",
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"keygen":             {usage: "--out path  generate a keystore", standalone: runKeygen},
		"init":               {usage: "run genesis from the config", run: runInit},
		"balance":            {usage: "<address>  real balance", run: runBalance},
		"supply":             {usage: "total supply, fees and reserves", run: runSupply},
		"rate":               {usage: "reflected units per real unit", run: runRate},
		"transfer":           {usage: "--to addr --amount n", run: runTransfer},
		"approve":            {usage: "--spender addr --amount n|max", run: runApprove},
		"mint":               {usage: "--to addr --amount n", run: runMint},
		"burn":               {usage: "--amount n", run: runBurn},
		"donate":             {usage: "--amount n", run: runDonate},
		"exclude":            {usage: "<address>  remove from reflection", run: runExclude},
		"include":            {usage: "<address>  return to reflection", run: runInclude},
		"pause":              {usage: "--paused=true|false  toggle transfers", run: runPause},
		"airdrop-register":   {usage: "mint the airdrop reserve", run: runAirdropRegister},
		"airdrop":            {usage: "--amount n --to a,b,c", run: runAirdrop},
		"sale-register":      {usage: "mint the sale reserve", run: runSaleRegister},
		"sale":               {usage: "--to addr --amount n", run: runSale},
		"pool-add":           {usage: "--alloc n --asset SYM [--fee-bps n] [--harvest n] [--with-update]", run: runPoolAdd},
		"deposit":            {usage: "--pool id --amount n [--referrer addr]", run: runDeposit},
		"withdraw":           {usage: "--pool id --amount n", run: runWithdraw},
		"emergency-withdraw": {usage: "--pool id", run: runEmergencyWithdraw},
		"pending":            {usage: "--pool id [--address addr]", run: runPending},
		"update-pool":        {usage: "[--pool id]  checkpoint one or every pool", run: runUpdatePool},
		"advance":            {usage: "--units n  move the clock forward", run: runAdvance},
		"history":            {usage: "[--address addr] [--limit n]  indexed events", run: runHistory},
		"serve":              {usage: "[--listen host:port]  run the HTTP gateway", run: runServe},
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseAmount accepts a base-unit integer or the 100e18 shorthand.
func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("--amount is required")
	}
	mantissa, exponent, found := strings.Cut(strings.ToLower(trimmed), "e")
	amount, err := uint256.FromDecimal(mantissa)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if !found {
		return amount, nil
	}
	exp, err := strconv.ParseUint(exponent, 10, 8)
	if err != nil || exp > 77 {
		return nil, fmt.Errorf("invalid amount exponent %q", value)
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(exp))
	out, overflow := new(uint256.Int).MulOverflow(amount, scale)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows", value)
	}
	return out, nil
}

func parseAddress(value, name string) (crypto.Address, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return addr, nil
}

func positional(args []string, name string) (crypto.Address, error) {
	if len(args) != 1 {
		return crypto.Address{}, fmt.Errorf("expected a single %s argument", name)
	}
	return parseAddress(args[0], name)
}

func runKeygen(args []string, stdout io.Writer) error {
	fs := newFlagSet("keygen")
	out := fs.String("out", "", "Output keystore path")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable holding the passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return fmt.Errorf("--out is required")
	}
	if _, err := os.Stat(*out); err == nil {
		return fmt.Errorf("%s already exists", *out)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	pass, err := passphrase.NewSource(*passEnv, "new keystore").Get()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return err
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return nil
}

func runInit(s *session, _ []string, stdout io.Writer) error {
	if err := s.ledger.Genesis(); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runBalance(s *session, args []string, stdout io.Writer) error {
	addr := s.caller
	if len(args) > 0 {
		var err error
		if addr, err = positional(args, "address"); err != nil {
			return err
		}
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s %s\n", addr, balance.Dec(), s.ledger.Token().Symbol())
	return nil
}

func runSupply(s *session, _ []string, stdout io.Writer) error {
	t := s.ledger.Token()
	total, err := t.TotalSupply()
	if err != nil {
		return err
	}
	fees, err := t.TotalFees()
	if err != nil {
		return err
	}
	airdrop, err := t.AirdropReserve()
	if err != nil {
		return err
	}
	sale, err := t.SaleReserve()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "total:   %s\nfees:    %s\nairdrop: %s\nsale:    %s\n", total.Dec(), fees.Dec(), airdrop.Dec(), sale.Dec())
	return nil
}

func runRate(s *session, _ []string, stdout io.Writer) error {
	rate, err := s.ledger.Token().Rate()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s/%s\n", rate.Reflected.Dec(), rate.Real.Dec())
	return nil
}

type amountFlags struct {
	fs     *flag.FlagSet
	to     *string
	amount *string
}

func newAmountFlags(name, target string) amountFlags {
	fs := newFlagSet(name)
	return amountFlags{
		fs:     fs,
		to:     fs.String(target, "", "Target address"),
		amount: fs.String("amount", "", "Amount in base units (100e18 shorthand supported)"),
	}
}

func (f amountFlags) parse(args []string, target string) (crypto.Address, *uint256.Int, error) {
	if err := f.fs.Parse(args); err != nil {
		return crypto.Address{}, nil, err
	}
	to, err := parseAddress(*f.to, target)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	amount, err := parseAmount(*f.amount)
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return to, amount, nil
}

func runTransfer(s *session, args []string, stdout io.Writer) error {
	to, amount, err := newAmountFlags("transfer", "to").parse(args, "to")
	if err != nil {
		return err
	}
	if err := s.ledger.Transfer(s.caller, to, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runApprove(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("approve")
	spenderFlag := fs.String("spender", "", "Spender address")
	amountFlag := fs.String("amount", "", "Allowance in base units, or max")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spender, err := parseAddress(*spenderFlag, "spender")
	if err != nil {
		return err
	}
	var amount *uint256.Int
	if strings.EqualFold(strings.TrimSpace(*amountFlag), "max") {
		amount = token.MaxAllowance()
	} else if amount, err = parseAmount(*amountFlag); err != nil {
		return err
	}
	if err := s.ledger.Approve(s.caller, spender, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runMint(s *session, args []string, stdout io.Writer) error {
	to, amount, err := newAmountFlags("mint", "to").parse(args, "to")
	if err != nil {
		return err
	}
	if err := s.ledger.Mint(s.caller, to, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func callerAmount(name string, args []string) (*uint256.Int, error) {
	fs := newFlagSet(name)
	amountFlag := fs.String("amount", "", "Amount in base units")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return parseAmount(*amountFlag)
}

func runBurn(s *session, args []string, stdout io.Writer) error {
	amount, err := callerAmount("burn", args)
	if err != nil {
		return err
	}
	if err := s.ledger.Burn(s.caller, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runDonate(s *session, args []string, stdout io.Writer) error {
	amount, err := callerAmount("donate", args)
	if err != nil {
		return err
	}
	if err := s.ledger.Donate(s.caller, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runExclude(s *session, args []string, stdout io.Writer) error {
	addr, err := positional(args, "address")
	if err != nil {
		return err
	}
	if err := s.ledger.ExcludeAccount(s.caller, addr); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runInclude(s *session, args []string, stdout io.Writer) error {
	addr, err := positional(args, "address")
	if err != nil {
		return err
	}
	if err := s.ledger.IncludeAccount(s.caller, addr); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runPause(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("pause")
	paused := fs.Bool("paused", true, "Pause (true) or resume (false) transfers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.ledger.SetTransferStatus(s.caller, *paused); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runAirdropRegister(s *session, _ []string, stdout io.Writer) error {
	if err := s.ledger.RegisterAirdropDistribution(s.caller); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runAirdrop(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("airdrop")
	toFlag := fs.String("to", "", "Comma separated recipients")
	amountFlag := fs.String("amount", "", "Amount per recipient")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var recipients []crypto.Address
	for _, part := range strings.Split(*toFlag, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		addr, err := parseAddress(part, "to")
		if err != nil {
			return err
		}
		recipients = append(recipients, addr)
	}
	amount, err := parseAmount(*amountFlag)
	if err != nil {
		return err
	}
	if err := s.ledger.DistributeAirdrop(s.caller, recipients, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runSaleRegister(s *session, _ []string, stdout io.Writer) error {
	if err := s.ledger.RegisterSaleDistribution(s.caller); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runSale(s *session, args []string, stdout io.Writer) error {
	to, amount, err := newAmountFlags("sale", "to").parse(args, "to")
	if err != nil {
		return err
	}
	if err := s.ledger.DistributeWhitelistSale(s.caller, to, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runPoolAdd(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("pool-add")
	alloc := fs.Uint64("alloc", 0, "Allocation points")
	asset := fs.String("asset", "", "Staked asset symbol")
	feeBps := fs.Uint64("fee-bps", 0, "Deposit fee in basis points")
	harvest := fs.Uint64("harvest", 0, "Harvest interval in time units")
	withUpdate := fs.Bool("with-update", false, "Checkpoint every pool first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*asset) == "" {
		*asset = s.ledger.Token().Symbol()
	}
	pid, err := s.ledger.AddPool(s.caller, *alloc, *asset, *feeBps, *harvest, *withUpdate)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "pool %d\n", pid)
	return s.commit(stdout)
}

func poolAmount(name string, args []string, withReferrer bool) (uint64, *uint256.Int, crypto.Address, error) {
	fs := newFlagSet(name)
	pool := fs.Uint64("pool", 0, "Pool id")
	amountFlag := fs.String("amount", "", "Amount in base units")
	var referrerFlag *string
	if withReferrer {
		referrerFlag = fs.String("referrer", "", "Referrer address")
	}
	if err := fs.Parse(args); err != nil {
		return 0, nil, crypto.Address{}, err
	}
	amount, err := parseAmount(*amountFlag)
	if err != nil {
		return 0, nil, crypto.Address{}, err
	}
	var referrer crypto.Address
	if referrerFlag != nil && strings.TrimSpace(*referrerFlag) != "" {
		if referrer, err = parseAddress(*referrerFlag, "referrer"); err != nil {
			return 0, nil, crypto.Address{}, err
		}
	}
	return *pool, amount, referrer, nil
}

func runDeposit(s *session, args []string, stdout io.Writer) error {
	pid, amount, referrer, err := poolAmount("deposit", args, true)
	if err != nil {
		return err
	}
	if err := s.ledger.Deposit(s.caller, pid, amount, referrer); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runWithdraw(s *session, args []string, stdout io.Writer) error {
	pid, amount, _, err := poolAmount("withdraw", args, false)
	if err != nil {
		return err
	}
	if err := s.ledger.Withdraw(s.caller, pid, amount); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runEmergencyWithdraw(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("emergency-withdraw")
	pool := fs.Uint64("pool", 0, "Pool id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.ledger.EmergencyWithdraw(s.caller, *pool); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runPending(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("pending")
	pool := fs.Uint64("pool", 0, "Pool id")
	addrFlag := fs.String("address", "", "Staker address (acting account when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr := s.caller
	if strings.TrimSpace(*addrFlag) != "" {
		var err error
		if addr, err = parseAddress(*addrFlag, "address"); err != nil {
			return err
		}
	}
	pending, err := s.ledger.PendingReward(*pool, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n", pending.Dec())
	return nil
}

func runUpdatePool(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("update-pool")
	pool := fs.Int64("pool", -1, "Pool id (every pool when negative)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var err error
	if *pool < 0 {
		err = s.ledger.MassUpdatePools()
	} else {
		err = s.ledger.UpdatePool(uint64(*pool))
	}
	if err != nil {
		return err
	}
	return s.commit(stdout)
}

func runAdvance(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("advance")
	units := fs.Uint64("units", 1, "Time units to advance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.ledger.Advance(*units); err != nil {
		return err
	}
	return s.commit(stdout)
}

func runHistory(s *session, args []string, stdout io.Writer) error {
	fs := newFlagSet("history")
	address := fs.String("address", "", "Only events mentioning this account")
	limit := fs.Int("limit", 20, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if s.events == nil {
		return fmt.Errorf("event index disabled; set [indexer] DSN")
	}
	var (
		evs []indexer.Event
		err error
	)
	if strings.TrimSpace(*address) != "" {
		addr, decodeErr := parseAddress(*address, "--address")
		if decodeErr != nil {
			return decodeErr
		}
		evs, err = s.events.History(addr, *limit)
	} else {
		evs, err = s.events.Latest(*limit)
	}
	if err != nil {
		return err
	}
	for _, ev := range evs {
		keys := make([]string, 0, len(ev.Attributes))
		for k := range ev.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+ev.Attributes[k])
		}
		fmt.Fprintf(stdout, "%d\t%s\t%s\n", ev.Height, ev.Type, strings.Join(parts, " "))
	}
	return nil
}

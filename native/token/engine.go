package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
	"posichain/native/fees"
)

const moduleName = "token"

// Engine implements the reflection token ledger over an external state.
type Engine struct {
	state    engineState
	params   Params
	registry SaleRegistry
	emitter  events.Emitter
	pauses   nativecommon.PauseView
}

// NewEngine validates params and constructs an engine. State must be wired
// with SetState before use.
func NewEngine(params Params) (*Engine, error) {
	normalized := params.normalized()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: normalized, emitter: events.NoopEmitter{}}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetSaleRegistry configures the whitelist consulted by sale payouts.
func (e *Engine) SetSaleRegistry(registry SaleRegistry) {
	if e == nil {
		return
	}
	e.registry = registry
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Params returns the normalized token parameters.
func (e *Engine) Params() Params { return e.params }

// atomic runs fn inside a state checkpoint. On error the checkpoint is
// reverted and buffered events are dropped; on success they are released.
func (e *Engine) atomic(fn func(buf *events.Buffer) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	rev := e.state.Snapshot()
	buf := new(events.Buffer)
	if err := fn(buf); err != nil {
		e.state.RevertToSnapshot(rev)
		buf.Discard()
		return err
	}
	buf.Flush(e.emitter)
	return nil
}

func (e *Engine) guard() error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	return nil
}

func (e *Engine) symbol() string { return e.params.Symbol }

func (e *Engine) loadSupply() (Supply, error) {
	return e.state.TokenSupply(e.symbol())
}

func (e *Engine) storeSupply(s Supply) error {
	return e.state.PutTokenSupply(e.symbol(), s)
}

func (e *Engine) loadAccount(addr crypto.Address) (Account, error) {
	return e.state.TokenAccount(e.symbol(), addr)
}

func (e *Engine) storeAccount(addr crypto.Address, account Account) error {
	return e.state.PutTokenAccount(e.symbol(), addr, account)
}

func (e *Engine) loadStatus() (Status, error) {
	return e.state.TokenStatus(e.symbol())
}

func (e *Engine) loadRoles() (Roles, error) {
	return e.state.TokenRoles(e.symbol())
}

func (e *Engine) requireRole(caller crypto.Address, role Role) (Roles, error) {
	roles, err := e.loadRoles()
	if err != nil {
		return Roles{}, err
	}
	if !roles.HasRole(caller, role) {
		return Roles{}, fmt.Errorf("%w: %s is not %s", ErrNotAuthorized, caller, role)
	}
	return roles, nil
}

// Genesis initialises the token: roles are stored, the custody accounts are
// excluded and exempt, and the initial supply is minted to holder (the owner
// when holder is zero).
func (e *Engine) Genesis(roles Roles, holder crypto.Address) error {
	return e.atomic(func(buf *events.Buffer) error {
		status, err := e.loadStatus()
		if err != nil {
			return err
		}
		if status.Initialised {
			return ErrAlreadyInitialised
		}
		if roles.Owner.IsZero() {
			return fmt.Errorf("%w: owner must be set", ErrInvalidAddress)
		}
		if holder.IsZero() {
			holder = roles.Owner
		}
		status.Initialised = true
		status.TransferFeeBps = e.params.TransferFeeBps
		if err := e.state.PutTokenStatus(e.symbol(), status); err != nil {
			return err
		}
		if err := e.state.PutTokenRoles(e.symbol(), roles); err != nil {
			return err
		}
		custody := []crypto.Address{e.params.AirdropCustody, e.params.SaleCustody}
		if !roles.StakingManager.IsZero() {
			custody = append(custody, roles.StakingManager)
		}
		for _, addr := range custody {
			if err := e.markCustody(addr); err != nil {
				return err
			}
		}
		return e.mintTo(buf, holder, e.params.InitialSupply, events.SupplyReasonGenesis)
	})
}

// markCustody excludes and exempts a module-held account.
func (e *Engine) markCustody(addr crypto.Address) error {
	account, err := e.loadAccount(addr)
	if err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if _, err := account.setExcluded(true, &supply, e.params.ReflectionScale); err != nil {
		return err
	}
	account.Exempt = true
	if err := e.storeAccount(addr, account); err != nil {
		return err
	}
	return e.storeSupply(supply)
}

// move debits amount from sender, credits the net amount to recipient and
// retains the fee for redistribution. All conversions use the rate observed
// before the movement.
func (e *Engine) move(buf *events.Buffer, from, to crypto.Address, amount *uint256.Int, feeFree bool) (*uint256.Int, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: transfer endpoints must be set", ErrInvalidAddress)
	}
	if amount == nil {
		return nil, ErrInvalidAmount
	}
	status, err := e.loadStatus()
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	sender, err := e.loadAccount(from)
	if err != nil {
		return nil, err
	}
	receiver, err := e.loadAccount(to)
	if err != nil {
		return nil, err
	}
	balance, err := sender.RealBalance(supply)
	if err != nil {
		return nil, err
	}
	if balance.Lt(amount) {
		return nil, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
	}
	split, err := fees.Apply(fees.ApplyInput{
		Domain: fees.DomainTransfer,
		Gross:  amount,
		Bps:    status.TransferFeeBps,
		Exempt: feeFree || sender.Exempt || receiver.Exempt,
	})
	if err != nil {
		return nil, err
	}
	rate, err := supply.conversionRate(e.params.ReflectionScale)
	if err != nil {
		return nil, err
	}
	if err := sender.debit(amount, rate, &supply); err != nil {
		return nil, fmt.Errorf("%w: %s", err, from)
	}
	if err := e.storeAccount(from, sender); err != nil {
		return nil, err
	}
	// Reload so a self-transfer observes the debit.
	receiver, err = e.loadAccount(to)
	if err != nil {
		return nil, err
	}
	// A fee retained with no included holder left would belong to nobody.
	if supply.Reflected.IsZero() && (receiver.IsExcluded() || split.Net.IsZero()) {
		split.Net = amount.Clone()
		split.Fee = nativecommon.Zero()
	}
	if err := receiver.credit(split.Net, rate, &supply); err != nil {
		return nil, err
	}
	if err := e.storeAccount(to, receiver); err != nil {
		return nil, err
	}
	if err := supply.RetainFee(split.Fee); err != nil {
		return nil, err
	}
	if err := e.storeSupply(supply); err != nil {
		return nil, err
	}
	buf.Emit(events.Transfer{Asset: e.symbol(), From: from, To: to, Amount: amount.Clone(), Fee: split.Fee})
	if !split.Fee.IsZero() {
		buf.Emit(events.Reflection{Token: e.symbol(), Source: from, Amount: split.Fee, Reason: events.ReflectionReasonFee})
	}
	return split.Fee, nil
}

func (e *Engine) checkTransferable(from, to crypto.Address) error {
	status, err := e.loadStatus()
	if err != nil {
		return err
	}
	if !status.Paused {
		return nil
	}
	sender, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	receiver, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	if sender.Exempt || receiver.Exempt {
		return nil
	}
	return ErrTransfersPaused
}

// Transfer moves amount real units from sender to recipient, charging the
// transfer fee unless either party is exempt.
func (e *Engine) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		if err := e.checkTransferable(from, to); err != nil {
			return err
		}
		_, err := e.move(buf, from, to, amount, false)
		return err
	})
}

// TransferFrom moves amount on behalf of from, spending spender's allowance.
func (e *Engine) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		if err := e.checkTransferable(from, to); err != nil {
			return err
		}
		current, err := e.state.TokenAllowance(e.symbol(), from, spender)
		if err != nil {
			return err
		}
		remaining, err := spendAllowance(current, amount)
		if err != nil {
			return fmt.Errorf("%w: %s may spend %s for %s", err, spender, current.Dec(), from)
		}
		if err := e.state.PutTokenAllowance(e.symbol(), from, spender, remaining); err != nil {
			return err
		}
		_, err = e.move(buf, from, to, amount, false)
		return err
	})
}

// Approve sets spender's allowance over owner's balance.
func (e *Engine) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if owner.IsZero() || spender.IsZero() {
		return fmt.Errorf("%w: approval parties must be set", ErrInvalidAddress)
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		if err := e.state.PutTokenAllowance(e.symbol(), owner, spender, amount.Clone()); err != nil {
			return err
		}
		buf.Emit(events.Approval{Asset: e.symbol(), Owner: owner, Spender: spender, Amount: amount.Clone()})
		return nil
	})
}

// Allowance returns the amount spender may still move for owner.
func (e *Engine) Allowance(owner, spender crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TokenAllowance(e.symbol(), owner, spender)
}

// mintTo expands the supply and credits the recipient at the pre-mint rate,
// leaving every other holder's balance unchanged.
func (e *Engine) mintTo(buf *events.Buffer, to crypto.Address, amount *uint256.Int, reason string) error {
	if to.IsZero() {
		return fmt.Errorf("%w: mint recipient must be set", ErrInvalidAddress)
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	rate, err := supply.conversionRate(e.params.ReflectionScale)
	if err != nil {
		return err
	}
	if err := supply.Expand(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	if err := account.credit(amount, rate, &supply); err != nil {
		return err
	}
	if err := e.storeAccount(to, account); err != nil {
		return err
	}
	if err := e.storeSupply(supply); err != nil {
		return err
	}
	buf.Emit(events.Transfer{Asset: e.symbol(), To: to, Amount: amount.Clone()})
	buf.Emit(events.TokenSupply{Token: e.symbol(), Total: supply.Total.Clone(), Delta: amount.Clone(), Reason: reason})
	return nil
}

// Mint creates amount new real units for to. Only the insurance fund and the
// staking manager may mint.
func (e *Engine) Mint(caller, to crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleMinter); err != nil {
			return err
		}
		return e.mintTo(buf, to, amount, events.SupplyReasonMint)
	})
}

// Burn destroys amount of from's balance and shrinks the total supply.
func (e *Engine) Burn(from crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		supply, err := e.loadSupply()
		if err != nil {
			return err
		}
		account, err := e.loadAccount(from)
		if err != nil {
			return err
		}
		balance, err := account.RealBalance(supply)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s, burns %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
		}
		rate, err := supply.conversionRate(e.params.ReflectionScale)
		if err != nil {
			return err
		}
		if err := account.debit(amount, rate, &supply); err != nil {
			return fmt.Errorf("%w: %s", err, from)
		}
		if err := supply.Contract(amount); err != nil {
			return err
		}
		if err := e.storeAccount(from, account); err != nil {
			return err
		}
		if err := e.storeSupply(supply); err != nil {
			return err
		}
		buf.Emit(events.Transfer{Asset: e.symbol(), From: from, Amount: amount.Clone()})
		buf.Emit(events.TokenSupply{Token: e.symbol(), Total: supply.Total.Clone(), Delta: amount.Clone(), Reason: events.SupplyReasonBurn})
		return nil
	})
}

// Donate gives amount of from's balance to every included holder at once.
// The total supply is unchanged: the donated value stays in the included
// backing without a reflected claim.
func (e *Engine) Donate(from crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		supply, err := e.loadSupply()
		if err != nil {
			return err
		}
		account, err := e.loadAccount(from)
		if err != nil {
			return err
		}
		balance, err := account.RealBalance(supply)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s, donates %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
		}
		rate, err := supply.conversionRate(e.params.ReflectionScale)
		if err != nil {
			return err
		}
		if err := account.debit(amount, rate, &supply); err != nil {
			return fmt.Errorf("%w: %s", err, from)
		}
		if supply.Reflected.IsZero() {
			return ErrNoReflectionHolders
		}
		if err := supply.RetainFee(amount); err != nil {
			return err
		}
		if err := e.storeAccount(from, account); err != nil {
			return err
		}
		if err := e.storeSupply(supply); err != nil {
			return err
		}
		buf.Emit(events.Reflection{Token: e.symbol(), Source: from, Amount: amount.Clone(), Reason: events.ReflectionReasonDonation})
		return nil
	})
}

// --- Views ---

func (e *Engine) Name() string   { return e.params.Name }
func (e *Engine) Symbol() string { return e.params.Symbol }
func (e *Engine) Decimals() uint8 {
	return e.params.Decimals
}

// TotalSupply returns the real-unit total supply.
func (e *Engine) TotalSupply() (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	return supply.Total.Clone(), nil
}

// TotalFees returns the cumulative real amount redistributed through fees
// and donations.
func (e *Engine) TotalFees() (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	return supply.Fees.Clone(), nil
}

// BalanceOf returns addr's balance in real units.
func (e *Engine) BalanceOf(addr crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.RealBalance(supply)
}

// Rate returns the current reflected-per-real rate.
func (e *Engine) Rate() (Rate, error) {
	if e == nil || e.state == nil {
		return Rate{}, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return Rate{}, err
	}
	return supply.Rate()
}

// Supply returns a copy of the shared supply cell.
func (e *Engine) Supply() (Supply, error) {
	if e == nil || e.state == nil {
		return Supply{}, errNilState
	}
	return e.loadSupply()
}

func (e *Engine) IsExcluded(addr crypto.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return false, err
	}
	return account.IsExcluded(), nil
}

func (e *Engine) IsExempt(addr crypto.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return false, err
	}
	return account.Exempt, nil
}

// ReflectionFromToken converts a real amount into reflected units at the
// current rate, optionally after deducting the transfer fee.
func (e *Engine) ReflectionFromToken(amount *uint256.Int, deductFee bool) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Gt(&supply.Total) {
		return nil, fmt.Errorf("%w: amount must not exceed supply", ErrInvalidAmount)
	}
	status, err := e.loadStatus()
	if err != nil {
		return nil, err
	}
	split, err := fees.Apply(fees.ApplyInput{Domain: fees.DomainTransfer, Gross: amount, Bps: status.TransferFeeBps, Exempt: !deductFee})
	if err != nil {
		return nil, err
	}
	rate, err := supply.conversionRate(e.params.ReflectionScale)
	if err != nil {
		return nil, err
	}
	return rate.ToReflected(split.Net)
}

// TokenFromReflection converts reflected units into real units.
func (e *Engine) TokenFromReflection(reflected *uint256.Int) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	if reflected == nil || reflected.Gt(&supply.Reflected) {
		return nil, ErrReflectionTooLarge
	}
	return Account{Balance: *reflected}.RealBalance(supply)
}

// Roles returns the current role assignment.
func (e *Engine) Roles() (Roles, error) {
	if e == nil || e.state == nil {
		return Roles{}, errNilState
	}
	return e.loadRoles()
}

// Status returns the token switches.
func (e *Engine) Status() (Status, error) {
	if e == nil || e.state == nil {
		return Status{}, errNilState
	}
	return e.loadStatus()
}

// Paused reports whether non-exempt transfers are halted.
func (e *Engine) Paused() (bool, error) {
	status, err := e.Status()
	if err != nil {
		return false, err
	}
	return status.Paused, nil
}

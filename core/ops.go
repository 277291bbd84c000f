package core

import (
	"log/slog"

	"github.com/holiman/uint256"

	"posichain/crypto"
)

func amountAttr(v *uint256.Int) slog.Attr {
	if v == nil {
		return slog.String("amount", "")
	}
	return slog.String("amount", v.Dec())
}

// Transfer moves amount from from to to, charging the transfer fee.
func (l *Ledger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	return l.run("transfer", func() error {
		return l.token.Transfer(from, to, amount)
	}, addr("from", from), addr("to", to), amountAttr(amount))
}

// TransferFrom spends spender's allowance over from.
func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	return l.run("transferFrom", func() error {
		return l.token.TransferFrom(spender, from, to, amount)
	}, addr("spender", spender), addr("from", from), addr("to", to), amountAttr(amount))
}

// Approve sets spender's allowance over owner.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	return l.run("approve", func() error {
		return l.token.Approve(owner, spender, amount)
	}, addr("owner", owner), addr("spender", spender), amountAttr(amount))
}

// Mint creates new supply for to.
func (l *Ledger) Mint(caller, to crypto.Address, amount *uint256.Int) error {
	return l.run("mint", func() error {
		return l.token.Mint(caller, to, amount)
	}, addr("caller", caller), addr("to", to), amountAttr(amount))
}

// Burn destroys part of from's balance.
func (l *Ledger) Burn(from crypto.Address, amount *uint256.Int) error {
	return l.run("burn", func() error {
		return l.token.Burn(from, amount)
	}, addr("from", from), amountAttr(amount))
}

// Donate reflects part of from's balance to every included holder.
func (l *Ledger) Donate(from crypto.Address, amount *uint256.Int) error {
	return l.run("donate", func() error {
		return l.token.Donate(from, amount)
	}, addr("from", from), amountAttr(amount))
}

// ExcludeAccount removes addr from reflection.
func (l *Ledger) ExcludeAccount(caller, target crypto.Address) error {
	return l.run("exclude", func() error {
		return l.token.ExcludeAccount(caller, target)
	}, addr("caller", caller), addr("account", target))
}

// IncludeAccount returns addr to reflection.
func (l *Ledger) IncludeAccount(caller, target crypto.Address) error {
	return l.run("include", func() error {
		return l.token.IncludeAccount(caller, target)
	}, addr("caller", caller), addr("account", target))
}

// SetExempt toggles the fee and pause exemption of target.
func (l *Ledger) SetExempt(caller, target crypto.Address, exempt bool) error {
	return l.run("setExempt", func() error {
		return l.token.SetExempt(caller, target, exempt)
	}, addr("caller", caller), addr("account", target), slog.Bool("exempt", exempt))
}

// SetTransferFee changes the transfer fee rate.
func (l *Ledger) SetTransferFee(caller crypto.Address, bps uint64) error {
	return l.run("setTransferFee", func() error {
		return l.token.SetTransferFee(caller, bps)
	}, addr("caller", caller), slog.Uint64("bps", bps))
}

// SetTransferStatus pauses or resumes transfers.
func (l *Ledger) SetTransferStatus(caller crypto.Address, paused bool) error {
	return l.run("setTransferStatus", func() error {
		return l.token.SetTransferStatus(caller, paused)
	}, addr("caller", caller), slog.Bool("paused", paused))
}

// RegisterAirdropDistribution mints the airdrop reserve into custody.
func (l *Ledger) RegisterAirdropDistribution(caller crypto.Address) error {
	return l.run("airdropRegister", func() error {
		return l.token.RegisterAirdropDistribution(caller)
	}, addr("caller", caller))
}

// DistributeAirdrop pays perRecipient to every recipient from the reserve.
func (l *Ledger) DistributeAirdrop(caller crypto.Address, recipients []crypto.Address, perRecipient *uint256.Int) error {
	return l.run("airdrop", func() error {
		return l.token.DistributeAirdrop(caller, recipients, perRecipient)
	}, addr("caller", caller), slog.Int("recipients", len(recipients)), amountAttr(perRecipient))
}

// RegisterSaleDistribution mints the sale reserve into custody.
func (l *Ledger) RegisterSaleDistribution(caller crypto.Address) error {
	return l.run("saleRegister", func() error {
		return l.token.RegisterSaleDistribution(caller)
	}, addr("caller", caller))
}

// DistributeWhitelistSale pays a whitelisted buyer from the sale reserve.
func (l *Ledger) DistributeWhitelistSale(caller, recipient crypto.Address, amount *uint256.Int) error {
	return l.run("sale", func() error {
		return l.token.DistributeWhitelistSale(caller, recipient, amount)
	}, addr("caller", caller), addr("recipient", recipient), amountAttr(amount))
}

// AddPool registers a staking pool and returns its id.
func (l *Ledger) AddPool(caller crypto.Address, allocPoint uint64, asset string, depositFeeBps, harvestInterval uint64, withUpdate bool) (uint64, error) {
	var pid uint64
	err := l.run("poolAdd", func() error {
		var err error
		pid, err = l.staking.AddPool(caller, allocPoint, asset, depositFeeBps, harvestInterval, withUpdate)
		return err
	}, addr("caller", caller), slog.String("asset", asset), slog.Uint64("allocPoint", allocPoint))
	return pid, err
}

// SetPool changes a pool's weight and fee settings.
func (l *Ledger) SetPool(caller crypto.Address, pid, allocPoint, depositFeeBps, harvestInterval uint64, withUpdate bool) error {
	return l.run("poolSet", func() error {
		return l.staking.SetPool(caller, pid, allocPoint, depositFeeBps, harvestInterval, withUpdate)
	}, addr("caller", caller), slog.Uint64("pool", pid), slog.Uint64("allocPoint", allocPoint))
}

// UpdateEmissionRate changes the reward minted per time unit.
func (l *Ledger) UpdateEmissionRate(caller crypto.Address, perUnit *uint256.Int) error {
	return l.run("emissionRate", func() error {
		return l.staking.UpdateEmissionRate(caller, perUnit)
	}, addr("caller", caller), amountAttr(perUnit))
}

// UpdatePool checkpoints one pool's rewards.
func (l *Ledger) UpdatePool(pid uint64) error {
	return l.run("poolUpdate", func() error {
		return l.staking.UpdatePool(pid)
	}, slog.Uint64("pool", pid))
}

// MassUpdatePools checkpoints every pool.
func (l *Ledger) MassUpdatePools() error {
	return l.run("poolUpdateAll", func() error {
		return l.staking.MassUpdatePools()
	})
}

// Deposit stakes amount into pid, harvesting pending rewards.
func (l *Ledger) Deposit(caller crypto.Address, pid uint64, amount *uint256.Int, referrer crypto.Address) error {
	return l.run("deposit", func() error {
		return l.staking.Deposit(caller, pid, amount, referrer)
	}, addr("caller", caller), slog.Uint64("pool", pid), amountAttr(amount))
}

// Withdraw returns amount of stake from pid, harvesting pending rewards.
func (l *Ledger) Withdraw(caller crypto.Address, pid uint64, amount *uint256.Int) error {
	return l.run("withdraw", func() error {
		return l.staking.Withdraw(caller, pid, amount)
	}, addr("caller", caller), slog.Uint64("pool", pid), amountAttr(amount))
}

// EmergencyWithdraw returns the whole stake and forfeits rewards.
func (l *Ledger) EmergencyWithdraw(caller crypto.Address, pid uint64) error {
	return l.run("emergencyWithdraw", func() error {
		return l.staking.EmergencyWithdraw(caller, pid)
	}, addr("caller", caller), slog.Uint64("pool", pid))
}

// BalanceOf returns the real balance of holder.
func (l *Ledger) BalanceOf(holder crypto.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token.BalanceOf(holder)
}

// PendingReward returns the reward holder could harvest from pid now.
func (l *Ledger) PendingReward(pid uint64, holder crypto.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staking.PendingReward(pid, holder)
}

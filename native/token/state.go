package token

import (
	"github.com/holiman/uint256"

	"posichain/crypto"
)

// Status holds the mutable switches of a token.
type Status struct {
	Initialised       bool
	Paused            bool
	AirdropRegistered bool
	SaleRegistered    bool
	TransferFeeBps    uint64
}

// Roles names the privileged accounts of a token.
type Roles struct {
	Owner          crypto.Address
	BotKeeper      crypto.Address
	InsuranceFund  crypto.Address
	StakingManager crypto.Address
	SaleAdmin      crypto.Address
}

// Role identifies a predicate over Roles.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleBotKeeper Role = "botKeeper"
	// RoleMinter is held by both the insurance fund and the staking manager.
	RoleMinter    Role = "minter"
	RoleSaleAdmin Role = "saleAdmin"

	RoleInsuranceFund  Role = "insuranceFund"
	RoleStakingManager Role = "stakingManager"
)

// HasRole reports whether caller satisfies role. The zero address never
// holds a role.
func (r Roles) HasRole(caller crypto.Address, role Role) bool {
	if caller.IsZero() {
		return false
	}
	switch role {
	case RoleOwner:
		return caller == r.Owner
	case RoleBotKeeper:
		return caller == r.BotKeeper
	case RoleMinter:
		return caller == r.InsuranceFund || caller == r.StakingManager
	case RoleSaleAdmin:
		return caller == r.SaleAdmin
	case RoleInsuranceFund:
		return caller == r.InsuranceFund
	case RoleStakingManager:
		return caller == r.StakingManager
	default:
		return false
	}
}

// engineState is the persistence surface the token engine runs against. All
// records are scoped by token symbol. Missing records read as zero values.
type engineState interface {
	Snapshot() int
	RevertToSnapshot(rev int)
	TokenAccount(symbol string, addr crypto.Address) (Account, error)
	PutTokenAccount(symbol string, addr crypto.Address, account Account) error
	TokenAllowance(symbol string, owner, spender crypto.Address) (*uint256.Int, error)
	PutTokenAllowance(symbol string, owner, spender crypto.Address, amount *uint256.Int) error
	TokenSupply(symbol string) (Supply, error)
	PutTokenSupply(symbol string, supply Supply) error
	TokenStatus(symbol string) (Status, error)
	PutTokenStatus(symbol string, status Status) error
	TokenRoles(symbol string) (Roles, error)
	PutTokenRoles(symbol string, roles Roles) error
	SaleDistributed(symbol string, addr crypto.Address) (*uint256.Int, error)
	PutSaleDistributed(symbol string, addr crypto.Address, amount *uint256.Int) error
}

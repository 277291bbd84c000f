package state

import (
	"posichain/crypto"
	"posichain/native/staking"
)

func (m *Manager) StakingGlobals() (staking.Globals, error) {
	globals, _, err := get[staking.Globals](m, stakingGlobalsKey{})
	return globals, err
}

func (m *Manager) PutStakingGlobals(globals staking.Globals) error {
	return put(m, stakingGlobalsKey{}, globals)
}

// StakingPool returns the pool and whether it exists.
func (m *Manager) StakingPool(pid uint64) (staking.Pool, bool, error) {
	return get[staking.Pool](m, stakingPoolKey{pid})
}

func (m *Manager) PutStakingPool(pool staking.Pool) error {
	return put(m, stakingPoolKey{pool.ID}, pool)
}

func (m *Manager) StakingUser(pid uint64, addr crypto.Address) (staking.UserStake, error) {
	stake, _, err := get[staking.UserStake](m, stakingUserKey{pid, addr})
	return stake, err
}

func (m *Manager) PutStakingUser(pid uint64, addr crypto.Address, stake staking.UserStake) error {
	return put(m, stakingUserKey{pid, addr}, stake)
}

func (m *Manager) StakingReferrer(user crypto.Address) (crypto.Address, error) {
	referrer, _, err := get[crypto.Address](m, stakingReferrerKey{user})
	return referrer, err
}

func (m *Manager) PutStakingReferrer(user, referrer crypto.Address) error {
	return put(m, stakingReferrerKey{user}, referrer)
}

package state

import (
	"encoding/binary"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"posichain/crypto"
)

// stateKey is a comparable record key. Its storage form is the keccak hash
// of a prefixed encoding, as returned by bytes.
type stateKey interface {
	bytes() []byte
}

var (
	tokenAccountPrefix   = []byte("token/account/")
	tokenAllowancePrefix = []byte("token/allowance/")
	tokenSupplyPrefix    = []byte("token/supply/")
	tokenStatusPrefix    = []byte("token/status/")
	tokenRolesPrefix     = []byte("token/roles/")
	saleDistributedPfx   = []byte("token/sale/")
	stakingGlobalsKeyRaw = []byte("staking/globals")
	stakingPoolPrefix    = []byte("staking/pool/")
	stakingUserPrefix    = []byte("staking/user/")
	stakingReferrerPfx   = []byte("staking/referrer/")
	heightKeyRaw         = []byte("ledger/height")
)

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

func symbolPart(symbol string) []byte {
	return append([]byte(symbol), ':')
}

func uint64Part(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

type tokenAccountKey struct {
	symbol string
	addr   crypto.Address
}

func (k tokenAccountKey) bytes() []byte {
	return hashKey(tokenAccountPrefix, symbolPart(k.symbol), k.addr[:])
}

type tokenAllowanceKey struct {
	symbol  string
	owner   crypto.Address
	spender crypto.Address
}

func (k tokenAllowanceKey) bytes() []byte {
	return hashKey(tokenAllowancePrefix, symbolPart(k.symbol), k.owner[:], k.spender[:])
}

type tokenSupplyKey struct{ symbol string }

func (k tokenSupplyKey) bytes() []byte { return hashKey(tokenSupplyPrefix, []byte(k.symbol)) }

type tokenStatusKey struct{ symbol string }

func (k tokenStatusKey) bytes() []byte { return hashKey(tokenStatusPrefix, []byte(k.symbol)) }

type tokenRolesKey struct{ symbol string }

func (k tokenRolesKey) bytes() []byte { return hashKey(tokenRolesPrefix, []byte(k.symbol)) }

type saleDistributedKey struct {
	symbol string
	addr   crypto.Address
}

func (k saleDistributedKey) bytes() []byte {
	return hashKey(saleDistributedPfx, symbolPart(k.symbol), k.addr[:])
}

type stakingGlobalsKey struct{}

func (stakingGlobalsKey) bytes() []byte { return hashKey(stakingGlobalsKeyRaw) }

type stakingPoolKey struct{ pid uint64 }

func (k stakingPoolKey) bytes() []byte { return hashKey(stakingPoolPrefix, uint64Part(k.pid)) }

type stakingUserKey struct {
	pid  uint64
	addr crypto.Address
}

func (k stakingUserKey) bytes() []byte {
	return hashKey(stakingUserPrefix, uint64Part(k.pid), k.addr[:])
}

type stakingReferrerKey struct{ user crypto.Address }

func (k stakingReferrerKey) bytes() []byte { return hashKey(stakingReferrerPfx, k.user[:]) }

type heightKey struct{}

func (heightKey) bytes() []byte { return hashKey(heightKeyRaw) }

package token

import (
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"posichain/crypto"
)

// SaleRegistry answers whitelist questions for sale payouts.
type SaleRegistry interface {
	IsRegistered(addr crypto.Address) bool
	// AllocationOf returns the total amount addr may receive over the sale.
	AllocationOf(addr crypto.Address) *uint256.Int
}

// StaticRegistry is a fixed whitelist, usually loaded from a YAML file.
type StaticRegistry struct {
	allocations map[crypto.Address]*uint256.Int
}

// NewStaticRegistry copies allocations into a registry.
func NewStaticRegistry(allocations map[crypto.Address]*uint256.Int) *StaticRegistry {
	out := &StaticRegistry{allocations: make(map[crypto.Address]*uint256.Int, len(allocations))}
	for addr, amount := range allocations {
		if amount == nil {
			continue
		}
		out.allocations[addr] = amount.Clone()
	}
	return out
}

func (r *StaticRegistry) IsRegistered(addr crypto.Address) bool {
	if r == nil {
		return false
	}
	_, ok := r.allocations[addr]
	return ok
}

func (r *StaticRegistry) AllocationOf(addr crypto.Address) *uint256.Int {
	if r == nil {
		return new(uint256.Int)
	}
	amount, ok := r.allocations[addr]
	if !ok {
		return new(uint256.Int)
	}
	return amount.Clone()
}

// Len reports the number of whitelisted addresses.
func (r *StaticRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.allocations)
}

type registryFile struct {
	Allocations []registryEntry `yaml:"allocations"`
}

type registryEntry struct {
	Address crypto.Address `yaml:"address"`
	// Amount is a decimal string in base units.
	Amount string `yaml:"amount"`
}

// ParseStaticRegistry decodes a YAML allocation document:
//
//	allocations:
//	  - address: posi1...
//	    amount: "1000000000000000000"
func ParseStaticRegistry(data []byte) (*StaticRegistry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("sale registry: decode: %w", err)
	}
	allocations := make(map[crypto.Address]*uint256.Int, len(file.Allocations))
	for i, entry := range file.Allocations {
		if entry.Address.IsZero() {
			return nil, fmt.Errorf("sale registry: entry %d: %w", i, ErrInvalidAddress)
		}
		if _, dup := allocations[entry.Address]; dup {
			return nil, fmt.Errorf("sale registry: entry %d: duplicate address %s", i, entry.Address)
		}
		amount, err := uint256.FromDecimal(strings.TrimSpace(entry.Amount))
		if err != nil {
			return nil, fmt.Errorf("sale registry: entry %d: amount %q: %w", i, entry.Amount, err)
		}
		allocations[entry.Address] = amount
	}
	return &StaticRegistry{allocations: allocations}, nil
}

// LoadStaticRegistry reads and parses a YAML allocation file.
func LoadStaticRegistry(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sale registry: %w", err)
	}
	return ParseStaticRegistry(data)
}

package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ScryptStrength selects the key derivation cost of a keystore file.
type ScryptStrength int

const (
	// StandardScrypt is the production cost.
	StandardScrypt ScryptStrength = iota
	// LightScrypt trades security for speed in tests and throwaway keys.
	LightScrypt
)

func (s ScryptStrength) params() (int, int) {
	if s == LightScrypt {
		return keystore.LightScryptN, keystore.LightScryptP
	}
	return keystore.StandardScryptN, keystore.StandardScryptP
}

var (
	errNilKey       = errors.New("crypto: nil private key")
	errEmptyKeyPath = errors.New("crypto: empty keystore path")
)

// SaveToKeystore writes key as a v3 keystore file at path using the standard
// scrypt cost. Missing parent directories are created with 0700 permissions.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	return SaveToKeystoreWithStrength(path, key, passphrase, StandardScrypt)
}

// SaveToKeystoreWithStrength is SaveToKeystore with an explicit scrypt cost.
// The file is written to a temporary sibling and renamed into place.
func SaveToKeystoreWithStrength(path string, key *PrivateKey, passphrase string, strength ScryptStrength) error {
	if key == nil || key.PrivateKey == nil {
		return errNilKey
	}
	if path == "" {
		return errEmptyKeyPath
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	scryptN, scryptP := strength.params()
	keyJSON, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    common.Address(key.PubKey().Address()),
		PrivateKey: key.PrivateKey,
	}, passphrase, scryptN, scryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(keyJSON); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts the v3 keystore file at path.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errEmptyKeyPath
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", path, err)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}

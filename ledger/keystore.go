package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is a local-first store for academy signing seeds.
//
// Features:
// - Supports Ed25519 seeds only
// - Stores seeds on the local filesystem, one directory per academy
// - Derives deterministic role subkeys (e.g. "issuer", "registrar")
//
// It exists so CLI and daemon invocations can load a Signer by academy name
// instead of passing raw seed material on the command line.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Academy string
	Roles   []string
}

func DefaultKeyDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".acadcert", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultKeyDir()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(academy string) string {
	return filepath.Join(ks.Directory, academy, "root.key")
}

func (ks *KeyStore) roleKeyPath(academy, role string) string {
	return filepath.Join(ks.Directory, academy, "roles", role+".key")
}

func checkName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

// ParseSeedHex decodes a hex Ed25519 seed, tolerating a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// an academy root seed. The derivation is versioned; changing it would break
// every previously derived credential.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := checkName("role", role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("acadcert-registry-kms-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}

func (ks *KeyStore) saveSeed(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitRootKey stores a root seed for an academy and returns the resulting
// signer's public key string.
func (ks *KeyStore) InitRootKey(academy string, seed []byte, overwrite bool) (publicKey string, filePath string, err error) {
	if err := checkName("academy", academy); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(academy)
	if err := ks.saveSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	signer, err := NewEd25519Signer(academy, seed)
	if err != nil {
		return "", "", err
	}
	return signer.PublicKey(), filePath, nil
}

// DeriveRoleKey derives and stores a role subkey for an academy.
func (ks *KeyStore) DeriveRoleKey(academy, role string, overwrite bool) (publicKey string, filePath string, err error) {
	if err := checkName("academy", academy); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(academy))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyPath(academy, role)
	if err := ks.saveSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	signer, err := NewEd25519Signer(academy, roleSeed)
	if err != nil {
		return "", "", err
	}
	return signer.PublicKey(), filePath, nil
}

// LoadSigner resolves a Signer for an academy, optionally scoped to a role.
func (ks *KeyStore) LoadSigner(academy, role string) (*Ed25519Signer, error) {
	if err := checkName("academy", academy); err != nil {
		return nil, err
	}
	var seed []byte
	var err error
	if role == "" {
		seed, err = ks.loadSeed(ks.rootKeyPath(academy))
	} else {
		if err := checkName("role", role); err != nil {
			return nil, err
		}
		seed, err = ks.loadSeed(ks.roleKeyPath(academy, role))
	}
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(academy, seed)
}

// ListKeys enumerates stored academies and their derived roles.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var academies []string
	for _, entry := range entries {
		if entry.IsDir() {
			academies = append(academies, entry.Name())
		}
	}
	sort.Strings(academies)

	var result []KeyEntry
	for _, academy := range academies {
		rolesDir := filepath.Join(ks.Directory, academy, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Academy: academy, Roles: roles})
	}
	return result, nil
}

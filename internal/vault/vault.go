// Package vault implements the optional encrypted credential store.
// The XDR access key, client key, and collector token can live here
// instead of the plain properties file. Entries are encrypted with
// AES-256-GCM under a master key derived from the operator passphrase
// via Argon2id.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters: m=64MB, t=3, p=4.
	argonMemory  = 64 * 1024
	argonTime    = 3
	argonThreads = 4
	argonKeyLen  = 32

	saltLen  = 32
	nonceLen = 12 // AES-256-GCM standard nonce size
)

// entry is a single encrypted secret.
type entry struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// vaultFile is the on-disk representation.
type vaultFile struct {
	Salt    []byte            `json:"salt"`
	Entries map[string]*entry `json:"entries"`
}

// Vault manages encrypted credential storage for one file.
type Vault struct {
	masterKey []byte // held in memory only
	salt      []byte
	entries   map[string]*entry
	path      string
}

// DeriveKey derives a 256-bit master key from a passphrase and salt using Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(passphrase),
		salt,
		argonTime,
		argonMemory,
		argonThreads,
		argonKeyLen,
	)
}

// Create initializes a new vault file with a fresh salt.
func Create(path, passphrase string) (*Vault, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	v := &Vault{
		masterKey: DeriveKey(passphrase, salt),
		salt:      salt,
		entries:   make(map[string]*entry),
		path:      path,
	}
	if err := v.Save(); err != nil {
		return nil, err
	}
	return v, nil
}

// Open loads an existing vault file and unlocks it with the passphrase.
// A wrong passphrase is detected on the first stored entry.
func Open(path, passphrase string) (*Vault, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vault file: %w", err)
	}

	var vf vaultFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parsing vault file: %w", err)
	}

	mk := DeriveKey(passphrase, vf.Salt)
	v := &Vault{
		masterKey: mk,
		salt:      vf.Salt,
		entries:   vf.Entries,
		path:      path,
	}
	if v.entries == nil {
		v.entries = make(map[string]*entry)
	}

	for key := range v.entries {
		if _, err := v.Get(key); err != nil {
			for i := range mk {
				mk[i] = 0
			}
			return nil, fmt.Errorf("incorrect passphrase or corrupted vault")
		}
		break
	}
	return v, nil
}

// Set encrypts and stores a secret, persisting the vault.
func (v *Vault) Set(key, value string) error {
	block, err := aes.NewCipher(v.masterKey)
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	v.entries[key] = &entry{
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, []byte(value), []byte(key)), // key as AAD
	}
	return v.Save()
}

// Get decrypts and returns the secret stored under the given key.
func (v *Vault) Get(key string) (string, error) {
	e, ok := v.entries[key]
	if !ok {
		return "", fmt.Errorf("vault key not found: %s", key)
	}

	block, err := aes.NewCipher(v.masterKey)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, e.Nonce, e.Ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("decrypting vault entry: %w", err)
	}
	return string(plaintext), nil
}

// Has checks if a key exists in the vault.
func (v *Vault) Has(key string) bool {
	_, ok := v.entries[key]
	return ok
}

// Keys returns all entry names, sorted.
func (v *Vault) Keys() []string {
	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save persists the vault file with owner-only permissions.
func (v *Vault) Save() error {
	data, err := json.MarshalIndent(vaultFile{Salt: v.salt, Entries: v.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling vault: %w", err)
	}
	if err := os.WriteFile(v.path, data, 0600); err != nil {
		return fmt.Errorf("writing vault file: %w", err)
	}
	return nil
}

// Package secret protects the API key at rest: the config file can carry an
// encrypted blob instead of the plain key, unlocked with a passphrase at
// startup.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/term"
)

const (
	saltLen  = 16
	nonceLen = 24

	// scrypt parameters: interactive-login strength.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Encrypt seals plaintext with a key derived from passphrase and returns a
// base64 blob of salt || nonce || box.
func Encrypt(plaintext, passphrase []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("secret: generating salt: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}

	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("secret: generating nonce: %w", err)
	}

	blob := append(salt, nonce[:]...)
	blob = secretbox.Seal(blob, plaintext, &nonce, key)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. A wrong passphrase or corrupted
// blob returns an error.
func Decrypt(encoded string, passphrase []byte) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("secret: decoding blob: %w", err)
	}
	if len(blob) < saltLen+nonceLen+secretbox.Overhead {
		return "", fmt.Errorf("secret: blob too short")
	}

	key, err := deriveKey(passphrase, blob[:saltLen])
	if err != nil {
		return "", err
	}

	var nonce [nonceLen]byte
	copy(nonce[:], blob[saltLen:saltLen+nonceLen])

	plaintext, ok := secretbox.Open(nil, blob[saltLen+nonceLen:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("secret: wrong passphrase or corrupted blob")
	}
	return string(plaintext), nil
}

// ReadPassphrase prompts on stderr and reads a passphrase from the terminal
// without echo.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("secret: reading passphrase: %w", err)
	}
	return pass, nil
}

func deriveKey(passphrase, salt []byte) (*[32]byte, error) {
	raw, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("secret: deriving key: %w", err)
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

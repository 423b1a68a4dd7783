package account

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

// SealedPrefix marks a secret stored encrypted.
const SealedPrefix = "sealed:"

// PassphraseEnv is the environment variable the CLI reads the sealing
// passphrase from.
const PassphraseEnv = "OMADM_PASSPHRASE"

const (
	sealSaltSize   = 16
	sealNonceSize  = 24
	sealKeySize    = 32
	sealIterations = 100000
)

var (
	// ErrSealed is returned when a sealed secret is found and no
	// passphrase is available.
	ErrSealed = errors.New("account: secret is sealed and no passphrase is set")

	// ErrBadSeal is returned when a sealed secret cannot be opened.
	ErrBadSeal = errors.New("account: cannot open sealed secret")
)

// IsSealed reports whether v carries the sealed prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, SealedPrefix)
}

// Seal encrypts secret with a key derived from passphrase. The result is
// "sealed:" followed by b64(salt | nonce | box).
func Seal(secret, passphrase string) (string, error) {
	var salt [sealSaltSize]byte
	var nonce [sealNonceSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", err
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	key := deriveKey(passphrase, salt[:])

	out := make([]byte, 0, sealSaltSize+sealNonceSize+len(secret)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(secret), &nonce, key)
	return SealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open returns the plain secret. Values without the sealed prefix are
// returned unchanged.
func Open(v, passphrase string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if passphrase == "" {
		return "", ErrSealed
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, SealedPrefix))
	if err != nil || len(raw) < sealSaltSize+sealNonceSize+secretbox.Overhead {
		return "", ErrBadSeal
	}
	var nonce [sealNonceSize]byte
	copy(nonce[:], raw[sealSaltSize:])
	key := deriveKey(passphrase, raw[:sealSaltSize])

	plain, ok := secretbox.Open(nil, raw[sealSaltSize+sealNonceSize:], &nonce, key)
	if !ok {
		return "", ErrBadSeal
	}
	return string(plain), nil
}

func deriveKey(passphrase string, salt []byte) *[sealKeySize]byte {
	var key [sealKeySize]byte
	copy(key[:], pbkdf2.Key([]byte(passphrase), salt, sealIterations, sealKeySize, sha256.New))
	return &key
}

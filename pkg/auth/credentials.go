package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

// HMACHeader is the HTTP header carrying HMAC credentials.
const HMACHeader = "x-syncml-hmac"

// NonceSize is the length of nonces generated by NewNonce.
const NonceSize = 16

// Basic returns b64(name:secret).
func Basic(name, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(name + ":" + secret))
}

// Digest returns the MD5 digest credential
// b64(md5(b64(md5(name:secret)):nonce)).
func Digest(name, secret string, nonce []byte) string {
	return b64MD5(digestInput(name, secret, nonce))
}

// HMAC returns the mac value of the x-syncml-hmac header for body:
// b64(md5(b64(md5(name:secret)):nonce:b64(md5(body)))).
func HMAC(name, secret string, nonce, body []byte) string {
	in := digestInput(name, secret, nonce)
	in = append(in, ':')
	in = append(in, b64MD5(body)...)
	return b64MD5(in)
}

// FormatHMACHeader builds the x-syncml-hmac header value.
func FormatHMACHeader(name, mac string) string {
	return fmt.Sprintf("algorithm=MD5, username=%q, mac=%s", name, mac)
}

// ParseHMACHeader extracts the username and mac of an x-syncml-hmac value.
func ParseHMACHeader(v string) (username, mac string, err error) {
	for _, part := range strings.Split(v, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		val = strings.Trim(val, `"`)
		switch strings.ToLower(key) {
		case "algorithm":
			if !strings.EqualFold(val, "MD5") {
				return "", "", fmt.Errorf("%w: algorithm %s", ErrInvalidHMACHeader, val)
			}
		case "username":
			username = val
		case "mac":
			mac = val
		}
	}
	if username == "" || mac == "" {
		return "", "", ErrInvalidHMACHeader
	}
	return username, mac, nil
}

// Compute returns the Cred Data for a scheme. HMAC credentials travel in the
// transport header, so they have no Cred Data.
func Compute(t Type, name, secret string, nonce []byte) string {
	switch t {
	case TypeBasic:
		return Basic(name, secret)
	case TypeDigest:
		return Digest(name, secret, nonce)
	default:
		return ""
	}
}

// Verify checks Cred Data received from the peer against the expected
// credentials.
func Verify(t Type, name, secret string, nonce []byte, data string) bool {
	want := Compute(t, name, secret, nonce)
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(data))) == 1
}

// VerifyHMAC checks an x-syncml-hmac header value received with body.
func VerifyHMAC(name, secret string, nonce, body []byte, header string) bool {
	user, mac, err := ParseHMACHeader(header)
	if err != nil || user != name {
		return false
	}
	want := HMAC(name, secret, nonce, body)
	return subtle.ConstantTimeCompare([]byte(want), []byte(mac)) == 1
}

// NewNonce returns NonceSize random bytes.
func NewNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, err
	}
	return n, nil
}

// DecodeNonce decodes a b64 NextNonce value.
func DecodeNonce(s string) ([]byte, error) {
	n, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	return n, nil
}

// EncodeNonce encodes a nonce for a NextNonce element.
func EncodeNonce(n []byte) string {
	return base64.StdEncoding.EncodeToString(n)
}

func digestInput(name, secret string, nonce []byte) []byte {
	in := []byte(b64MD5([]byte(name + ":" + secret)))
	in = append(in, ':')
	return append(in, nonce...)
}

func b64MD5(b []byte) string {
	sum := md5.Sum(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

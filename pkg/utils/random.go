package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
)

// RandomToken returns n random bytes as an unpadded base64url string. Used
// for OAuth state tokens and PKCE verifiers.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// PKCEPair returns a code verifier and its S256 challenge. Only the challenge
// goes into the authorization URL; the verifier stays server-side until the
// callback exchange.
func PKCEPair() (verifier, challenge string, err error) {
	verifier, err = RandomToken(32)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

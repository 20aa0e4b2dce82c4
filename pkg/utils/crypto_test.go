package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	t.Run("round trip", func(t *testing.T) {
		ciphertext, err := Encrypt([]byte("some-access-token"), key)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if ciphertext == "some-access-token" {
			t.Error("ciphertext should not equal plaintext")
		}

		plaintext, err := Decrypt(ciphertext, key)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if plaintext != "some-access-token" {
			t.Errorf("Decrypt() = %q, want %q", plaintext, "some-access-token")
		}
	})

	t.Run("unique nonces", func(t *testing.T) {
		a, err := Encrypt([]byte("token"), key)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		b, err := Encrypt([]byte("token"), key)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if a == b {
			t.Error("two encryptions of the same plaintext should differ")
		}
	})

	t.Run("wrong key fails", func(t *testing.T) {
		ciphertext, err := Encrypt([]byte("token"), key)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}

		otherKey := []byte("fedcba9876543210fedcba9876543210")
		if _, err := Decrypt(ciphertext, otherKey); err == nil {
			t.Error("Decrypt() with wrong key should fail")
		}
	})

	t.Run("truncated ciphertext fails", func(t *testing.T) {
		if _, err := Decrypt(base64.StdEncoding.EncodeToString([]byte("xy")), key); err == nil {
			t.Error("Decrypt() of truncated data should fail")
		}
	})
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken() error = %v", err)
	}
	b, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken() error = %v", err)
	}

	if a == b {
		t.Error("two tokens should differ")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("token %q should be base64url without padding", a)
	}
}

func TestPKCEPair(t *testing.T) {
	verifier, challenge, err := PKCEPair()
	if err != nil {
		t.Fatalf("PKCEPair() error = %v", err)
	}
	if verifier == challenge {
		t.Error("verifier and challenge should differ")
	}

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if challenge != want {
		t.Errorf("challenge = %q, want S256 of verifier %q", challenge, want)
	}
}

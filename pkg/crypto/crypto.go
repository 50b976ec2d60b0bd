// Package crypto implements the Kernel's cryptographic primitives: SHA-256
// content hashing and RSA-SHA256 signing/verification over PEM-encoded keys.
//
// Canonicalization and canonical-hash derivation live in
// github.com/.../pkg/canonicalize; this package deals only in raw bytes and
// keys, matching the narrow contract of the codec's §4.2 counterpart.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SignRsaSha256 signs payload with the RSA private key in pemPrivateKey
// (PKCS#1 or PKCS#8, PEM-encoded) and returns the base64-encoded signature.
func SignRsaSha256(payload []byte, pemPrivateKey []byte) (string, error) {
	key, err := parseRSAPrivateKey(pemPrivateKey)
	if err != nil {
		return "", kernelerrors.New(kernelerrors.CodeCryptoKeyInvalid, err.Error())
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", kernelerrors.Newf(kernelerrors.CodeCryptoKeyInvalid, "rsa sign: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyRsaSha256 verifies signatureBase64 against payload using the RSA
// public key in pemPublicKey. Verification failure is a boolean result,
// never an error: only a malformed key is an error.
func VerifyRsaSha256(payload []byte, signatureBase64 string, pemPublicKey []byte) (bool, error) {
	pub, err := parseRSAPublicKey(pemPublicKey)
	if err != nil {
		return false, kernelerrors.New(kernelerrors.CodeCryptoKeyInvalid, err.Error())
	}
	sig, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(payload)
	err = rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig)
	return err == nil, nil
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("PEM block does not contain an RSA private key")
	}
	return rsaKey, nil
}

func parseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("PEM block does not contain an RSA public key")
	}
	return rsaKey, nil
}

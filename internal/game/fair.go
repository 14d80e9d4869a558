package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	SERVER_SEED_BYTES = 32
	CLIENT_SEED_BYTES = 16
)

// GenerateServerSeed creates the secret per-round server seed from the OS
// entropy source. It is revealed only after the round resolves.
func GenerateServerSeed() string {
	b := make([]byte, SERVER_SEED_BYTES)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateClientSeed creates a client seed server-side when the player does
// not supply one. A player-supplied seed is accepted as-is; it is only ever
// used combined with the server seed.
func GenerateClientSeed() string {
	b := make([]byte, CLIENT_SEED_BYTES)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Digest combines the seed triple into the round's public fingerprint:
// hex(HMAC-SHA256(key=serverSeed, msg="clientSeed:nonce")). The same triple
// always yields the same digest, on any platform, so third parties can
// recompute outcomes after the server seed is revealed.
func Digest(serverSeed, clientSeed string, nonce int64) string {
	h := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(h, "%s:%d", clientSeed, nonce)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCommitment hashes the server seed for publication before a round
// starts, committing the server to its randomness ahead of any bet.
func HashCommitment(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyDigest recomputes the digest for a seed triple and compares it to
// the stored one. A mismatch is an integrity fault, never silently fixed.
func VerifyDigest(serverSeed, clientSeed string, nonce int64, storedDigest string) error {
	if got := Digest(serverSeed, clientSeed, nonce); got != storedDigest {
		return fmt.Errorf("%w: digest %s does not match stored %s", ErrFairnessViolation, got, storedDigest)
	}
	return nil
}

// VerifyCommitment checks that a revealed server seed matches the hash
// commitment published before the round.
func VerifyCommitment(serverSeed, commitment string) error {
	if got := HashCommitment(serverSeed); got != commitment {
		return fmt.Errorf("%w: server seed does not match commitment %s", ErrFairnessViolation, commitment)
	}
	return nil
}

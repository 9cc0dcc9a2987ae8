// Package credential hashes and verifies account secrets.
package credential

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

// DummyDigest is a valid bcrypt digest of a random value drawn at
// startup. Login paths verify against it when the account does not
// exist, so an unknown username costs the same as a wrong password.
var DummyDigest = newDummyDigest()

func newDummyDigest() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	digest, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(digest)
}

// Hash derives a salted digest from the secret. The work factor is
// bcrypt's default, which keeps interactive verification in the tens
// of milliseconds.
func Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the secret matches the stored digest. Any
// failure, including a malformed digest, is a plain no-match.
func Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

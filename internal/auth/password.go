package auth

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when the email lookup misses, so a login
// attempt costs one bcrypt comparison whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// HashPassword hashes a plaintext password using bcrypt with DefaultCost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate plaintext password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// BurnPassword runs a comparison that always fails. Call it on the
// unknown-email path to keep response timing flat.
func BurnPassword(pw string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pw))
}

package utils

import "golang.org/x/crypto/bcrypt"

// unknownUserHash stands in for the stored hash when a login names a user
// that does not exist, so both paths pay for one bcrypt comparison.
var unknownUserHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash of plain using the given cost.
// bcrypt rejects passwords longer than 72 bytes.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.  An empty hash never
// matches but still costs a full comparison.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(unknownUserHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword digests a plain password with bcrypt.  A cost outside
// bcrypt's supported range falls back to the library default instead
// of failing registration, so a misconfigured BCRYPT_COST degrades to
// slower hashing rather than an outage.  The random per-hash salt is
// encoded inside the returned digest, so users carries one column for
// the whole credential.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored digest.
// Any malformed digest counts as a mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

package security

import "golang.org/x/crypto/bcrypt"

// BcryptHasher hashes one-time codes so a leaked challenge store does not leak codes.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(code string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(code), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost && h.Cost <= bcrypt.MaxCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

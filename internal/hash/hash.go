package hash

import "golang.org/x/crypto/bcrypt"

const DefaultCost = 10

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type Bcrypt struct {
	Cost int
}

func NewBcrypt() *Bcrypt {
	return &Bcrypt{Cost: DefaultCost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// Verify reports false for a mismatch and for a malformed hash alike.
func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

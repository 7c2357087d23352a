package utils

import (
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

// HashEditPassword hashes a calendar edit password for storage. Edit
// passwords are a collaboration gate, not an auth boundary, so no length
// policy is imposed here.
func HashEditPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckEditPassword(hashedPassword string, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

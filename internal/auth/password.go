package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultCost is log2 of the scrypt N parameter used by NewPasswordHash.
	DefaultCost = 15

	saltLen = 16
	keyLen  = 64
)

var errInvalidHash = errors.New("invalid hash format")

// verifyPassword is the check the stores run; tests replace it to count calls.
var verifyPassword = VerifyPassword

var missHash = sync.OnceValue(func() string {
	hash, err := HashPassword("", make([]byte, saltLen), DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

// verifyMiss runs a full verification against a fixed hash so a lookup miss
// costs as much as a wrong password.
func verifyMiss(password string) {
	_, _ = verifyPassword(missHash(), password)
}

// HashPassword derives an scrypt key from password and salt with N = 1<<cost
// and returns it in $7$ form.
func HashPassword(password string, salt []byte, cost int) (string, error) {
	if cost < 1 || cost > 30 {
		return "", fmt.Errorf("scrypt cost %d out of range", cost)
	}
	dk, err := scrypt.Key([]byte(password), salt, 1<<cost, 8, 1, keyLen)
	if err != nil {
		return "", err
	}

	saltBase64 := base64.StdEncoding.EncodeToString(salt)
	hashBase64 := base64.StdEncoding.EncodeToString(dk)
	return fmt.Sprintf("$7$%d$%s$%s", cost, saltBase64, hashBase64), nil
}

// NewPasswordHash hashes password with a random salt and DefaultCost.
func NewPasswordHash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return HashPassword(password, salt, DefaultCost)
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password string) (bool, error) {
	// "$7$cost$salt$key" splits into "", "7", cost, salt, key.
	parts := strings.Split(hash, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "7" {
		return false, errInvalidHash
	}

	cost, err := strconv.Atoi(parts[2])
	if err != nil {
		return false, fmt.Errorf("%w: cost: %w", errInvalidHash, err)
	}

	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %w", errInvalidHash, err)
	}

	computed, err := HashPassword(password, salt, cost)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(hash), []byte(computed)) == 1, nil
}

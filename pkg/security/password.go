// Package security hashes and verifies account passwords with Argon2id in
// the PHC string format ($argon2id$v=19$m=..,t=..,p=..$salt$hash).
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

const (
	MinPasswordLength = 8
	// Argon2 cost grows with input length; cap it so a login body cannot
	// pin a CPU.
	MaxPasswordLength = 128
)

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

var b64 = base64.RawStdEncoding

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// Hasher produces hashes with the cost parameters it was built with.
type Hasher struct {
	p argonParams
}

// NewHasher clamps cfg into safe bounds; a zero config yields the cheapest
// acceptable parameters, which tests rely on.
func NewHasher(cfg config.PasswordConfig) Hasher {
	return Hasher{p: argonParams{
		memory:  bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		time:    bounded(cfg.ArgonTime, 1, 10),
		threads: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		saltLen: bounded(cfg.ArgonSaltLen, 8, 64),
		keyLen:  bounded(cfg.ArgonKeyLen, 16, 64),
	}}
}

func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.p.time, h.p.memory, h.p.threads, h.p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.p.memory, h.p.time, h.p.threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// NeedsRehash reports whether encoded was produced with different cost
// parameters than h, so a successful login can upgrade it.
func (h Hasher) NeedsRehash(encoded string) bool {
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.memory != h.p.memory || p.time != h.p.time || p.threads != h.p.threads || p.keyLen != h.p.keyLen
}

// Verify checks password against encoded in constant time. Parameters are
// read from the hash itself, so hashes made under older settings still verify.
func Verify(password, encoded string) (bool, error) {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if threads == 0 || threads > 255 || p.time == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.threads = uint8(threads)

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen, p.keyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func bounded(v, lo, hi int) uint32 {
	return uint32(max(lo, min(v, hi)))
}

// CheckPolicy is the credential policy for new and changed passwords.
func CheckPolicy(password string) error {
	switch n := len(password); {
	case n < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case n > MaxPasswordLength:
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	letters := strings.IndexFunc(password, unicode.IsLetter) >= 0
	digits := strings.IndexFunc(password, unicode.IsDigit) >= 0
	if !letters || !digits {
		return errors.New("password must contain letters and digits")
	}
	return nil
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
}

var errUnknownHashFormat = errors.New("unknown password hash format")

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

var defaultArgon2Params = argon2Params{
	memory:      64 * 1024,
	time:        3,
	parallelism: 2,
	saltLength:  16,
	keyLength:   32,
}

// Hasher hashes with one algorithm and verifies either format, so stored
// hashes keep working after PASSWORD_HASHER changes. At most `concurrency`
// hash computations run at once.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      argon2Params
	sem        *semaphore.Weighted
}

func NewHasher(algorithm string, bcryptCost, concurrency int) (*Hasher, error) {
	switch algorithm {
	case HashBcrypt, HashArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", algorithm)
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      defaultArgon2Params,
		sem:        semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hash slot: %w", err)
	}
	defer h.sem.Release(1)

	if h.algorithm == HashArgon2id {
		return h.hashArgon2(password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *Hasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hash slot: %w", err)
	}
	defer h.sem.Release(1)

	switch {
	case strings.HasPrefix(encoded, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("compare password: %w", err)
	case strings.HasPrefix(encoded, "$"+HashArgon2id+"$"):
		return verifyArgon2(password, encoded)
	default:
		return false, errUnknownHashFormat
	}
}

func (h *Hasher) hashArgon2(password string) (string, error) {
	p := h.argon

	salt := make([]byte, p.saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.parallelism, p.keyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		HashArgon2id,
		argon2.Version,
		p.memory,
		p.time,
		p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// verifyArgon2 parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func verifyArgon2(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != HashArgon2id {
		return false, errUnknownHashFormat
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return false, errors.New("unsupported argon2 version")
	}

	var memory, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return false, fmt.Errorf("parse argon2 params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.New("invalid argon2 salt encoding")
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, errors.New("invalid argon2 hash encoding")
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

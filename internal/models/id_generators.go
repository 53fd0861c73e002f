package models

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator implements models.IDGenerator and generates the request IDs sent upstream
type ULIDGenerator struct{}

func (ULIDGenerator) ID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RandomGenerator implements models.IDGenerator and generates the browser session IDs
type RandomGenerator struct {
	Length int
}

func (r RandomGenerator) ID() (string, error) {
	b := make([]byte, r.Length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRandomGenerator(length int) RandomGenerator {
	return RandomGenerator{length}
}

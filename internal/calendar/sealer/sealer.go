package sealer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/receptionist/internal/clock"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix    = "v1."
	defaultStateTTL = 15 * time.Minute
)

var (
	ErrEmptySecret  = errors.New("sealer secret is empty")
	ErrMalformed    = errors.New("sealed value is malformed")
	ErrInvalidState = errors.New("state is invalid")
	ErrStateExpired = errors.New("state has expired")
)

// Sealer encrypts OAuth tokens at rest and signs the OAuth state parameter.
// Both keys are derived from one secret with HKDF-SHA256.
type Sealer struct {
	sealKey  []byte
	stateKey []byte
	stateTTL time.Duration
	clock    clock.Clock
}

func New(secret string, clk clock.Clock) (*Sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}

	sealKey, err := derive(secret, "calendar-token-seal", chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	stateKey, err := derive(secret, "calendar-oauth-state", sha256.Size)
	if err != nil {
		return nil, err
	}
	return &Sealer{sealKey: sealKey, stateKey: stateKey, stateTTL: defaultStateTTL, clock: clk}, nil
}

func derive(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305. Empty input seals to the
// empty string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(s.sealKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(s.sealKey)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrMalformed
	}
	return string(plaintext), nil
}

// SignState returns "<business_id>.<ulid>.<mac>". The ULID timestamp bounds
// how long the state is accepted.
func (s *Sealer) SignState(businessID string) (string, error) {
	if businessID == "" || strings.Contains(businessID, ".") {
		return "", ErrInvalidState
	}
	id, err := ulid.New(ulid.Timestamp(s.clock.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	payload := businessID + "." + id.String()
	return payload + "." + s.mac(payload), nil
}

// VerifyState checks the signature and age of state and returns the business
// id it carries.
func (s *Sealer) VerifyState(state string) (string, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 3 || parts[0] == "" {
		return "", ErrInvalidState
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.mac(payload))) {
		return "", ErrInvalidState
	}

	id, err := ulid.Parse(parts[1])
	if err != nil {
		return "", ErrInvalidState
	}
	issued := ulid.Time(id.Time())
	if s.clock.Now().Sub(issued) > s.stateTTL {
		return "", ErrStateExpired
	}
	return parts[0], nil
}

func (s *Sealer) mac(payload string) string {
	h := hmac.New(sha256.New, s.stateKey)
	_, _ = h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Package id provides centralized ID generation for the bridge.
//
// Session identifiers are prefixed ULIDs: lexicographically sortable by
// connect time, which keeps session enumeration order stable. CAPTCHA and
// message correlation identifiers are random UUIDs since ordering carries
// no meaning for them.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies one extension connection
type SessionID string

// CaptchaID identifies one CAPTCHA challenge instance
type CaptchaID string

// MessageID identifies a command envelope awaiting a response
type MessageID string

const (
	SessionPrefix = "sess"
	CaptchaPrefix = "cap"
	MessagePrefix = "msg"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
// Monotonic entropy guarantees strictly increasing IDs within the same
// millisecond, so sort order equals generation order.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewCaptchaID generates a new CAPTCHA challenge ID
func NewCaptchaID() CaptchaID {
	return CaptchaID(CaptchaPrefix + "_" + uuid.NewString())
}

// NewMessageID generates a new command correlation ID
func NewMessageID() MessageID {
	return MessageID(MessagePrefix + "_" + uuid.NewString())
}

func (id SessionID) String() string { return string(id) }
func (id CaptchaID) String() string { return string(id) }
func (id MessageID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsSessionID reports whether s has the session prefix and a valid ULID body.
func IsSessionID(s string) bool {
	rest, ok := strings.CutPrefix(s, SessionPrefix+"_")
	return ok && IsValid(rest)
}

// Package idgen produces human-readable record identifiers of the form
// PREFIX-yyyyMMddHHmmss-SUFFIX, e.g. USR-20251003143025-K7Q2.
//
// The embedded timestamp makes identifiers sort by creation time within a
// prefix and keeps the creation instant visible without a lookup, while the
// random suffix disambiguates identifiers minted within the same second.
// Timestamps are always rendered in UTC.
package idgen

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// timestampLayout renders a 14 digit, second resolution timestamp.
const timestampLayout = "20060102150405"

// DefaultSuffixLength is the random suffix length used by Generate. Four
// characters give 36^4 combinations per second per prefix; callers that
// need stronger collision resistance use GenerateN with a longer suffix.
const DefaultSuffixLength = 4

// suffixPattern matches the timestamp and suffix portion after the prefix.
var suffixPattern = regexp.MustCompile(`^\d{14}-[A-Z0-9]+$`)

// Generator mints identifiers. The zero value is not usable; call New.
type Generator struct {
	now  func() time.Time
	intN func(n int) int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock. Useful in tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WithRand overrides the random source. The function must return a value
// in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) {
		if intN != nil {
			g.intN = intN
		}
	}
}

// New builds a Generator backed by the system clock and the process-local
// random source.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:  time.Now,
		intN: rand.IntN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Generate mints an identifier with the default suffix length.
func (g *Generator) Generate(prefix string) string {
	return g.GenerateN(prefix, DefaultSuffixLength)
}

// GenerateN mints an identifier with a suffix of suffixLen characters.
// Non-positive lengths fall back to DefaultSuffixLength so the result is
// always syntactically valid.
func (g *Generator) GenerateN(prefix string, suffixLen int) string {
	if suffixLen < 1 {
		suffixLen = DefaultSuffixLength
	}

	timestamp := g.now().UTC().Format(timestampLayout)

	var suffix strings.Builder
	suffix.Grow(suffixLen)
	for i := 0; i < suffixLen; i++ {
		suffix.WriteByte(alphabet[g.intN(len(alphabet))])
	}

	return fmt.Sprintf("%s-%s-%s", prefix, timestamp, suffix.String())
}

var defaultGenerator = New()

// Generate mints an identifier using the package default Generator. Safe
// for concurrent use: the underlying random source is the runtime's
// process-local generator and no other state is shared.
func Generate(prefix string) string {
	return defaultGenerator.Generate(prefix)
}

// GenerateN mints an identifier with a custom suffix length using the
// package default Generator.
func GenerateN(prefix string, suffixLen int) string {
	return defaultGenerator.GenerateN(prefix, suffixLen)
}

// IsValid reports whether id has the exact shape PREFIX-<14 digits>-<one or
// more characters from A-Z0-9>. It never panics and returns false for empty
// input or any deviation.
func IsValid(id, prefix string) bool {
	if id == "" || prefix == "" {
		return false
	}

	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return false
	}

	return suffixPattern.MatchString(rest)
}

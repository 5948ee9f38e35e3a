package numerator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"rxpos/internal/core/apperror"
)

// SequenceStore atomically increments and returns a per-category counter.
// The first call for a new category returns 1.
//
// Implementations must do the increment in a single round trip
// (UPSERT ... RETURNING, INCR) rather than read-then-write.
type SequenceStore interface {
	Next(ctx context.Context, category string) (int64, error)
}

// CollisionChecker reports whether a candidate identifier is already taken.
type CollisionChecker interface {
	IdentifierExists(ctx context.Context, value string) (bool, error)
}

// CollisionCheckerFunc adapts a function to CollisionChecker.
type CollisionCheckerFunc func(ctx context.Context, value string) (bool, error)

// IdentifierExists implements CollisionChecker.
func (f CollisionCheckerFunc) IdentifierExists(ctx context.Context, value string) (bool, error) {
	return f(ctx, value)
}

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator builds transaction identifiers on top of a SequenceStore.
type Generator struct {
	store   SequenceStore
	checker CollisionChecker
	now     func() time.Time
	random  func(n int) (string, error)
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for id timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRandom overrides the random string source. Tests use it to force collisions.
func WithRandom(fn func(n int) (string, error)) Option {
	return func(g *Generator) { g.random = fn }
}

// NewGenerator creates a Generator. checker may be nil, in which case every
// candidate is accepted.
func NewGenerator(store SequenceStore, checker CollisionChecker, opts ...Option) *Generator {
	g := &Generator{
		store:   store,
		checker: checker,
		now:     time.Now,
		random:  RandomString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NextSequence returns the next counter value for category.
func (g *Generator) NextSequence(ctx context.Context, category string) (int64, error) {
	if category == "" {
		return 0, apperror.NewValidation("sequence category is required")
	}
	n, err := g.store.Next(ctx, category)
	if err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", category, err)
	}
	return n, nil
}

// GenerateUniqueID returns PREFIX-<base36 ms>-<6 random>, uppercased.
func (g *Generator) GenerateUniqueID(ctx context.Context, prefix string) (string, error) {
	return g.generate(ctx, prefix, func() (string, error) {
		suffix, err := g.random(SuffixLength)
		if err != nil {
			return "", err
		}
		ts := strconv.FormatInt(g.now().UnixMilli(), 36)
		return strings.ToUpper(prefix + "-" + ts + "-" + suffix), nil
	})
}

// GenerateReference returns a random reference string of ReferenceLength.
func (g *Generator) GenerateReference(ctx context.Context) (string, error) {
	return g.generate(ctx, "REF", func() (string, error) {
		return g.random(ReferenceLength)
	})
}

func (g *Generator) generate(ctx context.Context, label string, candidate func() (string, error)) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		value, err := candidate()
		if err != nil {
			return "", fmt.Errorf("generate %s: %w", label, err)
		}
		if g.checker == nil {
			return value, nil
		}
		exists, err := g.checker.IdentifierExists(ctx, value)
		if err != nil {
			return "", fmt.Errorf("check %s collision: %w", label, err)
		}
		if !exists {
			return value, nil
		}
	}
	return "", apperror.NewIDGeneration(label, MaxAttempts)
}

// FormatTransactionNumber renders SAL00000042 style numbers: the first three
// letters of the transaction type, upper-cased, followed by the padded sequence.
func FormatTransactionNumber(transactionType string, seq int64) string {
	letters := make([]rune, 0, 3)
	for _, r := range transactionType {
		if !unicode.IsLetter(r) {
			continue
		}
		letters = append(letters, unicode.ToUpper(r))
		if len(letters) == 3 {
			break
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return fmt.Sprintf("%s%0*d", string(letters), NumberPadWidth, seq)
}

// RandomString returns n characters drawn uniformly from [A-Z0-9] using
// crypto/rand.
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

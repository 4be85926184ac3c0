// Package ident issues human-readable business identifiers such as order and
// invoice numbers, formatted PREFIX-YYMMDD-XXXXX.
package ident

import (
	"context"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Identifier prefixes.
const (
	PrefixOrder   = "ORD"
	PrefixInvoice = "INV"
)

const (
	suffixLen    = 5
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letters      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultMaxAttempts bounds the collision retry loop.
	DefaultMaxAttempts = 10
)

// Pattern matches every identifier produced by Generate.
var Pattern = regexp.MustCompile(`^[A-Z]{3}-\d{6}-[A-Z0-9]{5}$`)

// ErrExhausted is returned when every attempt produced a taken identifier.
var ErrExhausted = errors.New("identifier attempts exhausted")

// ErrTaken is returned by a ClaimFunc whose candidate was taken after the
// exists check passed.
var ErrTaken = errors.New("identifier taken")

// ExistsFunc reports whether candidate is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// ClaimFunc stores candidate. It returns ErrTaken when the candidate turned
// out to be in use.
type ClaimFunc func(candidate string) error

// Generator produces identifier candidates. It is safe for concurrent use
// when its random source is.
type Generator struct {
	rnd         func(n int) int
	now         func() time.Time
	maxAttempts int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand overrides the random index source. fn must return a value in [0, n).
func WithRand(fn func(n int) int) Option {
	return func(g *Generator) { g.rnd = fn }
}

// WithClock overrides the clock used for the date stamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithMaxAttempts sets the retry bound of Unique and Issue. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator creates a Generator backed by math/rand/v2 and time.Now.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rnd:         rand.IntN,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// MaxAttempts returns the retry bound.
func (g *Generator) MaxAttempts() int { return g.maxAttempts }

// Now returns the generator's current time.
func (g *Generator) Now() time.Time { return g.now() }

// Generate returns a candidate identifier for prefix stamped with date.
func (g *Generator) Generate(prefix string, date time.Time) string {
	buf := make([]byte, 0, len(prefix)+1+6+1+suffixLen)
	buf = append(buf, prefix...)
	buf = append(buf, '-')
	buf = date.AppendFormat(buf, "060102")
	buf = append(buf, '-')
	return string(g.appendRandom(buf, alphanumeric, suffixLen))
}

// Letters returns n random uppercase letters.
func (g *Generator) Letters(n int) string {
	return string(g.appendRandom(make([]byte, 0, n), letters, n))
}

func (g *Generator) appendRandom(buf []byte, alphabet string, n int) []byte {
	for range n {
		buf = append(buf, alphabet[g.rnd(len(alphabet))])
	}
	return buf
}

// Unique generates candidates until exists reports one as free, giving up
// with ErrExhausted after MaxAttempts tries.
func (g *Generator) Unique(ctx context.Context, prefix string, exists ExistsFunc) (string, error) {
	return g.Issue(ctx, prefix, exists, nil)
}

// Issue is Unique followed by claim on every free candidate. A claim
// returning ErrTaken moves on to the next candidate. Taken candidates count
// toward one MaxAttempts budget whether exists or claim rejected them.
// Other claim errors are returned as is.
func (g *Generator) Issue(ctx context.Context, prefix string, exists ExistsFunc, claim ClaimFunc) (string, error) {
	date := g.now()
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := g.Generate(prefix, date)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", errors.Wrapf(err, "check %s identifier", prefix)
		}
		if !taken {
			if claim == nil {
				return candidate, nil
			}
			if err = claim(candidate); err == nil {
				return candidate, nil
			}
			if !errors.Is(err, ErrTaken) {
				return "", err
			}
		}
		zctx.From(ctx).Debug("Identifier collision",
			zap.String("prefix", prefix),
			zap.String("candidate", candidate),
			zap.Bool("claimed", !taken),
			zap.Int("attempt", attempt),
		)
	}

	zctx.From(ctx).Error("Identifier attempts exhausted",
		zap.String("prefix", prefix),
		zap.Int("attempts", g.maxAttempts),
	)
	return "", errors.Wrapf(ErrExhausted, "%s after %d attempts", prefix, g.maxAttempts)
}

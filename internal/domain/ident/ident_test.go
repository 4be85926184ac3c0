package ident

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)

// sequence returns a deterministic random source cycling through vals.
func sequence(vals ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := vals[i%len(vals)] % n
		i++
		return v
	}
}

func TestGenerate_Format(t *testing.T) {
	g := NewGenerator()

	for range 200 {
		id := g.Generate(PrefixOrder, fixedNow)
		require.Regexp(t, Pattern, id)
		assert.Equal(t, "ORD-250309-", id[:11])
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGenerator(WithRand(sequence(0, 1, 25, 26, 35)))

	assert.Equal(t, "INV-250309-ABZ09", g.Generate(PrefixInvoice, fixedNow))
}

func TestLetters(t *testing.T) {
	g := NewGenerator()

	got := g.Letters(4)
	assert.Regexp(t, `^[A-Z]{4}$`, got)
}

func TestUnique_RetriesOnCollision(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	taken := map[string]bool{}
	var first string
	calls := 0
	exists := func(_ context.Context, c string) (bool, error) {
		calls++
		if calls == 1 {
			// Force a collision on the first candidate.
			first = c
			taken[c] = true
			return true, nil
		}
		return taken[c], nil
	}

	id, err := g.Unique(context.Background(), PrefixOrder, exists)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NotEqual(t, first, id)
	assert.Regexp(t, Pattern, id)
}

func TestUnique_NoDuplicatesAgainstStore(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	store := map[string]bool{}
	exists := func(_ context.Context, c string) (bool, error) {
		return store[c], nil
	}

	for range 500 {
		id, err := g.Unique(context.Background(), PrefixInvoice, exists)
		require.NoError(t, err)
		require.False(t, store[id], "duplicate %s", id)
		store[id] = true
	}
	assert.Len(t, store, 500)
}

func TestUnique_Exhausted(t *testing.T) {
	g := NewGenerator(WithMaxAttempts(3))

	calls := 0
	_, err := g.Unique(context.Background(), PrefixOrder, func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestUnique_CheckError(t *testing.T) {
	g := NewGenerator()

	_, err := g.Unique(context.Background(), PrefixOrder, func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check ORD identifier")
}

func TestIssue_ClaimTakenRetries(t *testing.T) {
	g := NewGenerator(WithClock(func() time.Time { return fixedNow }))

	var claimed []string
	id, err := g.Issue(context.Background(), PrefixOrder,
		func(context.Context, string) (bool, error) { return false, nil },
		func(c string) error {
			claimed = append(claimed, c)
			if len(claimed) == 1 {
				return ErrTaken
			}
			return nil
		},
	)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, claimed[1], id)
	assert.NotEqual(t, claimed[0], id)
}

func TestIssue_SharedAttemptBudget(t *testing.T) {
	g := NewGenerator(WithMaxAttempts(4))

	checks, claims := 0, 0
	_, err := g.Issue(context.Background(), PrefixInvoice,
		func(context.Context, string) (bool, error) {
			checks++
			// Every other candidate is already stored.
			return checks%2 == 1, nil
		},
		func(string) error {
			claims++
			return ErrTaken
		},
	)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, checks)
	assert.Equal(t, 2, claims)
}

func TestIssue_ClaimError(t *testing.T) {
	g := NewGenerator()
	errStore := errors.New("insert failed")

	claims := 0
	_, err := g.Issue(context.Background(), PrefixOrder,
		func(context.Context, string) (bool, error) { return false, nil },
		func(string) error {
			claims++
			return errStore
		},
	)
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, 1, claims)
}

package owner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		id     Identity
		want   Owner
		wantOK bool
	}{
		{
			name:   "account only",
			id:     Identity{AccountID: 42, Authenticated: true},
			want:   Account(42),
			wantOK: true,
		},
		{
			name:   "account wins over token",
			id:     Identity{AccountID: 42, Authenticated: true, AnonymousToken: "tok-1"},
			want:   Account(42),
			wantOK: true,
		},
		{
			name:   "token only",
			id:     Identity{AnonymousToken: "tok-1"},
			want:   Anonymous("tok-1"),
			wantOK: true,
		},
		{
			name:   "account id without authentication is ignored",
			id:     Identity{AccountID: 42, AnonymousToken: "tok-1"},
			want:   Anonymous("tok-1"),
			wantOK: true,
		},
		{
			name: "nothing",
			id:   Identity{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustResolve_NoOwner(t *testing.T) {
	_, err := MustResolve(Identity{})
	require.ErrorIs(t, err, ErrOwnerRequired)
}

func TestMustResolve_AccountPrecedence(t *testing.T) {
	o, err := MustResolve(Identity{AccountID: 7, Authenticated: true, AnonymousToken: "x"})
	require.NoError(t, err)

	id, ok := o.AccountID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, isAnon := o.Token()
	assert.False(t, isAnon)
}

func TestOwner_Key(t *testing.T) {
	assert.Equal(t, "account:9", Account(9).Key())
	assert.Equal(t, "anon:abc", Anonymous("abc").Key())
	assert.Equal(t, "", Owner{}.Key())
	assert.Equal(t, "anon:***", Anonymous("abc").String())
	assert.True(t, Owner{}.IsZero())
}

// Package owner identifies who an in-progress cart belongs to.
package owner

import (
	"strconv"

	"github.com/go-faster/errors"
)

// ErrOwnerRequired is returned by the strict resolver when the request carries
// neither an authenticated account nor an anonymous cart token.
var ErrOwnerRequired = errors.New("cart owner required")

// Kind discriminates the two identity kinds a cart can belong to.
type Kind uint8

const (
	// KindAccount is an authenticated customer account.
	KindAccount Kind = iota + 1
	// KindAnonymous is an opaque token carried by an anonymous client.
	KindAnonymous
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindAnonymous:
		return "anonymous"
	default:
		return "none"
	}
}

// Owner is either an account or an anonymous token, never both. The zero value
// is not a valid owner; construct one with Account or Anonymous.
type Owner struct {
	kind      Kind
	accountID int64
	token     string
}

// Account returns the owner for an authenticated account.
func Account(id int64) Owner {
	return Owner{kind: KindAccount, accountID: id}
}

// Anonymous returns the owner for an anonymous cart token.
func Anonymous(token string) Owner {
	return Owner{kind: KindAnonymous, token: token}
}

// Kind reports which identity this owner carries.
func (o Owner) Kind() Kind { return o.kind }

// IsZero reports whether o is the "no owner" value.
func (o Owner) IsZero() bool { return o.kind == 0 }

// AccountID returns the account id and true for account owners.
func (o Owner) AccountID() (int64, bool) {
	return o.accountID, o.kind == KindAccount
}

// Token returns the anonymous token and true for anonymous owners.
func (o Owner) Token() (string, bool) {
	return o.token, o.kind == KindAnonymous
}

// Key is a stable string form of the owner, used for lock keys and logs.
func (o Owner) Key() string {
	switch o.kind {
	case KindAccount:
		return "account:" + strconv.FormatInt(o.accountID, 10)
	case KindAnonymous:
		return "anon:" + o.token
	default:
		return ""
	}
}

func (o Owner) String() string {
	if o.kind == KindAnonymous {
		// Tokens act as bearer credentials for the cart; keep them out of logs.
		return "anon:***"
	}
	return o.Key()
}

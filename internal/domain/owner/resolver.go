package owner

// Identity is what a request tells us about its caller. AccountID is set only
// when an upstream authenticator verified the caller.
type Identity struct {
	AccountID      int64
	Authenticated  bool
	AnonymousToken string
}

// Resolve is the lenient resolver used by read-only cart queries: it returns
// false when the request carries no identity at all.
//
// An authenticated account always wins over an anonymous token.
func Resolve(id Identity) (Owner, bool) {
	if id.Authenticated {
		return Account(id.AccountID), true
	}
	if id.AnonymousToken != "" {
		return Anonymous(id.AnonymousToken), true
	}
	return Owner{}, false
}

// MustResolve is the strict resolver used when an owner must exist, e.g. when
// adding to a cart.
func MustResolve(id Identity) (Owner, error) {
	o, ok := Resolve(id)
	if !ok {
		return Owner{}, ErrOwnerRequired
	}
	return o, nil
}

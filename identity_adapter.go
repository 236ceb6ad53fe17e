package identity

// AccountIdentity adapts an Account into the Identity interface for
// token minting.
type AccountIdentity struct {
	account *Account
}

// NewIdentityFromAccount returns an Identity adapter for the account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return AccountIdentity{account: account}
}

// UUID returns the account's public uuid.
func (a AccountIdentity) UUID() string {
	if a.account == nil {
		return ""
	}
	return a.account.UUID
}

// Username returns the account's username.
func (a AccountIdentity) Username() string {
	if a.account == nil {
		return ""
	}
	return a.account.Username
}

// Email returns the account's email address.
func (a AccountIdentity) Email() string {
	if a.account == nil {
		return ""
	}
	return a.account.Email
}

// Role returns the account's role as a string.
func (a AccountIdentity) Role() string {
	if a.account == nil {
		return ""
	}
	return string(a.account.Role)
}

// Channel returns the channel the account was established through.
func (a AccountIdentity) Channel() string {
	if a.account == nil {
		return ""
	}
	return string(a.account.Channel)
}

package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// usernameRetryBudget bounds unique-username generation so the loop
// provably terminates. Exhaustion signals a directory capacity problem.
const usernameRetryBudget = 10_000

// passwordlessChannels are the channels a passwordless assertion may
// arrive through.
var passwordlessChannels = map[LoginChannel]struct{}{
	ChannelPhone:     {},
	ChannelWhatsApp:  {},
	ChannelSMS:       {},
	ChannelEmailLink: {},
}

// Resolver turns heterogeneous inbound identity evidence into exactly
// one canonical account, creating it when the flow allows.
type Resolver struct {
	directory Accounts
	logger    Logger
}

var _ AccountResolver = (*Resolver)(nil)

// NewResolver builds a resolver over the account directory.
func NewResolver(directory Accounts) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    defLogger{},
	}
}

func (r *Resolver) WithLogger(logger Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// ResolvePasswordLogin performs a single lookup by email, username,
// phone, or uuid. It never creates an account.
func (r *Resolver) ResolvePasswordLogin(ctx context.Context, identifier string) (*Account, error) {
	account, err := r.directory.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}
	return account, nil
}

// ResolveOAuthLogin looks the assertion up by email and creates a fresh
// USER account on first login. OAuth identities have no stable key
// besides email, so an assertion without one is rejected.
func (r *Resolver) ResolveOAuthLogin(ctx context.Context, assertion OAuthAssertion) (*Account, error) {
	if strings.TrimSpace(assertion.Email) == "" {
		return nil, ErrMissingEmail
	}

	channel, err := ParseLoginChannel(assertion.Channel)
	if err != nil {
		return nil, err
	}

	account, err := r.directory.FindByEmail(ctx, assertion.Email)
	if err == nil {
		return account, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}

	record := &Account{
		Email:    assertion.Email,
		FullName: assertion.Name,
		Role:     RoleUser,
		Kind:     KindUser,
		Channel:  channel,
		// No password hash: OAuth accounts never authenticate locally.
	}

	return r.createOrAdopt(ctx, record, func() (*Account, error) {
		return r.directory.FindByEmail(ctx, assertion.Email)
	})
}

// ResolvePasswordlessLogin looks the assertion up by phone and creates
// a fresh USER account on first login, deriving a unique username from
// the assertion's email or phone.
func (r *Resolver) ResolvePasswordlessLogin(ctx context.Context, assertion PasswordlessAssertion) (*Account, error) {
	if strings.TrimSpace(assertion.Phone) == "" || strings.TrimSpace(assertion.Channel) == "" {
		return nil, ErrMissingPhoneOrChannel
	}

	channel, err := ParseLoginChannel(assertion.Channel)
	if err != nil {
		return nil, err
	}
	if _, ok := passwordlessChannels[channel]; !ok {
		return nil, ErrInvalidChannel.WithMetadata(map[string]any{
			"channel": assertion.Channel,
		})
	}

	phone := assertion.Phone
	if normalized, ok := normalizePhone(phone); ok {
		phone = normalized
	}

	account, err := r.directory.FindByPhone(ctx, phone)
	if err == nil {
		return account, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}

	username, err := r.GenerateUniqueUsername(ctx, usernameSeed(assertion.Email, phone))
	if err != nil {
		return nil, err
	}

	record := &Account{
		Email:    assertion.Email,
		Phone:    phone,
		Username: username,
		Role:     RoleUser,
		Kind:     KindUser,
		Channel:  channel,
	}

	return r.createOrAdopt(ctx, record, func() (*Account, error) {
		return r.directory.FindByPhone(ctx, phone)
	})
}

// createOrAdopt creates the record, treating a uniqueness violation as
// "someone else just created it" and retrying once as a lookup. The
// directory's uniqueness constraint is the authority that settles the
// creation race.
func (r *Resolver) createOrAdopt(ctx context.Context, record *Account, lookup func() (*Account, error)) (*Account, error) {
	created, err := r.directory.Create(ctx, record)
	if err == nil {
		return created, nil
	}

	if !IsDuplicateIdentity(err) {
		return nil, goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}

	r.logger.Debug("creation lost a race, adopting existing account")

	existing, lookupErr := lookup()
	if lookupErr != nil {
		if repository.IsRecordNotFound(lookupErr) {
			return nil, err
		}
		return nil, goerrors.Wrap(lookupErr, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
			WithTextCode(ErrAccountUnavailable.TextCode)
	}

	return existing, nil
}

// GenerateUniqueUsername appends a random numeric suffix to the
// normalized seed until the directory reports the value unused, or the
// retry budget runs out.
func (r *Resolver) GenerateUniqueUsername(ctx context.Context, seed string) (string, error) {
	base := normalizeUsernameSeed(seed)
	if base == "" {
		base = "user"
	}

	for attempt := 0; attempt < usernameRetryBudget; attempt++ {
		candidate := fmt.Sprintf("%s%d", base, rand.IntN(100_000))

		taken, err := r.directory.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", goerrors.Wrap(err, ErrAccountUnavailable.Category, ErrAccountUnavailable.Message).
				WithTextCode(ErrAccountUnavailable.TextCode)
		}

		if !taken {
			return candidate, nil
		}
	}

	return "", ErrUsernameGenerationExhausted.WithMetadata(map[string]any{
		"seed": seed,
	})
}

func normalizeUsernameSeed(seed string) string {
	seed = strings.ToLower(strings.TrimSpace(seed))
	seed = strings.Join(strings.Fields(seed), "")
	if at := strings.Index(seed, "@"); at > 0 {
		seed = seed[:at]
	}
	return strings.TrimLeft(seed, "+")
}

func usernameSeed(email, phone string) string {
	if email != "" {
		return email
	}
	return phone
}

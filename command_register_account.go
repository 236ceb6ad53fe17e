package identity

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterFanMessage struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Channel  string `json:"channel"`
}

func (e RegisterFanMessage) Type() string { return "account.register_fan" }

// Validate will run validation rules
func (e RegisterFanMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(
			&e.FullName,
			validation.Required,
		),
		validation.Field(
			&e.Email,
			validation.By(validateContactPresent(e.Email, e.Phone)),
			is.Email,
		),
	)
}

// validateContactPresent requires at least one reachable contact.
func validateContactPresent(email, phone string) validation.RuleFunc {
	return func(value any) error {
		if email == "" && phone == "" {
			return errors.New("either email or phone is required")
		}
		return nil
	}
}

type RegisterCreatorMessage struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterCreatorMessage) Type() string { return "account.register_creator" }

// Validate will run validation rules
func (e RegisterCreatorMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(
			&e.Username,
			validation.Required,
		),
		validation.Field(
			&e.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&e.Password,
			validation.Required,
		),
	)
}

// RegisterFanHandler creates fan accounts. Fans sign up with an email
// or a phone number; a password is optional since passwordless channels
// never use one. The username is generated, never user supplied.
type RegisterFanHandler struct {
	repo     RepositoryManager
	resolver *Resolver
	hasher   PasswordHasher
}

func NewRegisterFanHandler(repo RepositoryManager, resolver *Resolver) *RegisterFanHandler {
	return &RegisterFanHandler{
		repo:     repo,
		resolver: resolver,
		hasher:   BcryptHasher{},
	}
}

func (h *RegisterFanHandler) Execute(ctx context.Context, event RegisterFanMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during fan registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterFanHandler) execute(ctx context.Context, event RegisterFanMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid fan registration")
	}

	channel := ChannelEmail
	if event.Channel != "" {
		parsed, err := ParseLoginChannel(event.Channel)
		if err != nil {
			return err
		}
		channel = parsed
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if event.Password != "" {
			hash, err := h.hasher.HashPassword(event.Password)
			if err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			account.PasswordHash = hash
		}

		seed := event.Email
		if seed == "" {
			seed = event.Phone
		}
		username, err := h.resolver.GenerateUniqueUsername(ctx, seed)
		if err != nil {
			return err
		}

		account.FullName = event.FullName
		account.Email = event.Email
		account.Kind = KindFan
		account.Role = RoleUser
		account.Channel = channel
		account.Username = username
		if event.Phone != "" {
			phone, ok := normalizePhone(event.Phone)
			if !ok {
				return ErrMissingPhoneOrChannel.WithMetadata(map[string]any{
					"phone": event.Phone,
				})
			}
			account.Phone = phone
		}
		if id, err := hashid.NewUUID(seed); err == nil {
			account.ID = id
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			if IsDuplicateIdentity(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create fan account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "fan registration transaction failed")
	}

	return nil
}

// RegisterCreatorHandler creates creator accounts. Creators pick their
// own username and always carry a password.
type RegisterCreatorHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
}

func NewRegisterCreatorHandler(repo RepositoryManager) *RegisterCreatorHandler {
	return &RegisterCreatorHandler{
		repo:   repo,
		hasher: BcryptHasher{},
	}
}

func (h *RegisterCreatorHandler) Execute(ctx context.Context, event RegisterCreatorMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during creator registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterCreatorHandler) execute(ctx context.Context, event RegisterCreatorMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid creator registration")
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.FullName = event.FullName
		account.Username = event.Username
		account.Email = event.Email
		account.Kind = KindCreator
		account.Role = RoleCreator
		account.Channel = ChannelEmail
		if id, err := hashid.NewUUID(event.Email); err == nil {
			account.ID = id
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			if IsDuplicateIdentity(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create creator account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "creator registration transaction failed")
	}

	return nil
}

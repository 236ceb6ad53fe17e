package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// Accounts is the directory the resolver and session manager rely on.
// Lookups signal absence through a record-not-found error, never by
// panicking or overloading other failure kinds.
type Accounts interface {
	repository.Repository[*Account]

	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByPhone(ctx context.Context, phone string) (*Account, error)
	FindByUUID(ctx context.Context, accountUUID string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	Save(ctx context.Context, record *Account) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository wires the bun-backed directory.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.findByColumn(ctx, "email", strings.TrimSpace(email))
}

func (a *accounts) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	return a.findByColumn(ctx, "phone_number", strings.TrimSpace(phone))
}

func (a *accounts) FindByUUID(ctx context.Context, accountUUID string) (*Account, error) {
	return a.findByColumn(ctx, "uuid", strings.TrimSpace(accountUUID))
}

func (a *accounts) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return a.findByColumn(ctx, "username", strings.TrimSpace(username))
}

func (a *accounts) findByColumn(ctx context.Context, column, value string) (*Account, error) {
	if value == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetByIdentifier probes the columns an inbound identifier could match:
// public uuid, then email, then phone, then username. The first hit wins.
func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": identifier,
			})
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.existsByColumn(ctx, "email", strings.TrimSpace(email))
}

func (a *accounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return a.existsByColumn(ctx, "username", strings.TrimSpace(username))
}

func (a *accounts) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return a.existsByColumn(ctx, "phone_number", strings.TrimSpace(phone))
}

func (a *accounts) existsByColumn(ctx context.Context, column, value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	return a.db.NewSelect().
		Model((*Account)(nil)).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Exists(ctx)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateIdentity.WithMetadata(map[string]any{
				"email":    record.Email,
				"username": record.Username,
			})
		}
		return nil, err
	}

	return created, nil
}

// Save updates an existing record, or creates it when absent.
func (a *accounts) Save(ctx context.Context, record *Account) (*Account, error) {
	if record.ID != uuid.Nil {
		return a.Repository.UpdateTx(ctx, a.db, record, repository.UpdateByID(record.ID.String()))
	}
	return a.Create(ctx, record)
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.Kind == "" {
		record.Kind = KindUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	// The public uuid is assigned exactly once, at creation.
	if record.UUID == "" {
		record.UUID = uuid.NewString()
	}

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 4)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "uuid",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	if normalized, ok := normalizePhone(trimmed); ok {
		options = append(options, identifierOption{
			column: "phone_number",
			value:  normalized,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// normalizePhone canonicalizes inbound phone numbers to E.164 so the
// same account is found regardless of formatting.
func normalizePhone(raw string) (string, bool) {
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

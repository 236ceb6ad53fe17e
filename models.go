package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's global role
type AccountRole = string

const (
	// RoleUser is a standard account with limited access
	RoleUser AccountRole = "USER"
	// RoleCreator can publish and manage content
	RoleCreator AccountRole = "CREATOR"
	// RoleAdmin has full management privileges
	RoleAdmin AccountRole = "ADMIN"
)

// ParseRole normalizes untrusted input into one of the known roles.
func ParseRole(raw string) (AccountRole, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case RoleUser:
		return RoleUser, nil
	case RoleCreator:
		return RoleCreator, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole.WithMetadata(map[string]any{
			"role": raw,
		})
	}
}

// AccountKind discriminates the account variants a deployment supports.
// A single polymorphic Account record carries the kind instead of one
// store per variant.
type AccountKind = string

const (
	KindUser    AccountKind = "user"
	KindFan     AccountKind = "fan"
	KindCreator AccountKind = "creator"
)

// LoginChannel records how an account was first established
type LoginChannel = string

const (
	ChannelEmail     LoginChannel = "EMAIL"
	ChannelGoogle    LoginChannel = "GOOGLE"
	ChannelFacebook  LoginChannel = "FACEBOOK"
	ChannelPhone     LoginChannel = "PHONE"
	ChannelWhatsApp  LoginChannel = "WHATSAPP"
	ChannelSMS       LoginChannel = "SMS"
	ChannelEmailLink LoginChannel = "EMAIL_LINK"
)

// ParseLoginChannel normalizes untrusted input into a known channel.
func ParseLoginChannel(raw string) (LoginChannel, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelGoogle:
		return ChannelGoogle, nil
	case ChannelFacebook:
		return ChannelFacebook, nil
	case ChannelPhone:
		return ChannelPhone, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelSMS:
		return ChannelSMS, nil
	case ChannelEmailLink:
		return ChannelEmailLink, nil
	default:
		return "", ErrInvalidChannel.WithMetadata(map[string]any{
			"channel": raw,
		})
	}
}

// Account is the canonical identity record. UUID is assigned once at
// creation and is the only identifier embedded in tokens; email, phone
// and username may change without invalidating issued credentials.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UUID          string       `bun:"uuid,notnull,unique" json:"uuid,omitempty"`
	Kind          AccountKind  `bun:"kind,notnull" json:"kind,omitempty"`
	Role          AccountRole  `bun:"account_role,notnull" json:"account_role,omitempty"`
	Channel       LoginChannel `bun:"login_channel,notnull" json:"login_channel,omitempty"`
	FullName      string       `bun:"full_name" json:"full_name,omitempty"`
	Username      string       `bun:"username,unique,nullzero" json:"username,omitempty"`
	Email         string       `bun:"email,unique,nullzero" json:"email,omitempty"`
	Phone         string       `bun:"phone_number,unique,nullzero" json:"phone_number,omitempty"`
	PasswordHash  string       `bun:"password_hash" json:"password_hash,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether the account can authenticate with a
// password at all. Social and passwordless accounts carry no hash.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// HasContactPoint enforces the record invariant that at least one of
// email or phone is present.
func (a *Account) HasContactPoint() bool {
	return a != nil && (a.Email != "" || a.Phone != "")
}

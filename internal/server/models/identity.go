package models

import "time"

// Provider identifies a third-party identity provider.
type Provider string

const (
	ProviderTwitter  Provider = "twitter"
	ProviderFacebook Provider = "facebook"
)

// IdentityLink is the authoritative record binding one provider identity to
// exactly one voter. At most one link may exist per (provider, provider user
// id); collisions are transient and resolved by an account merge, never by
// silently overwriting the owner.
type IdentityLink struct {
	ID             int64
	Provider       Provider
	ProviderUserID int64
	VoterWeVoteID  string
	SecretKey      string
	CreatedAt      time.Time
}

// AuthSession holds provider OAuth state for a device before any voter is
// confirmed: request/access tokens from the OAuth dance plus the profile
// attributes the provider returned.
type AuthSession struct {
	ID            int64
	Provider      Provider
	DeviceID      string
	RequestToken  string
	RequestSecret string
	AccessToken   string
	AccessSecret  string

	ProviderUserID  int64
	ScreenName      string
	DisplayName     string
	Email           string
	ProfileImageURL string

	CreatedAt time.Time
}

// ProviderProfile is the profile attribute set delivered by the OAuth
// collaborator with a sign-in event. Caching repair uses it to refresh the
// authoritative owner's cached fields.
type ProviderProfile struct {
	UserID          int64
	ScreenName      string
	DisplayName     string
	Email           string
	ProfileImageURL string
}

// DeviceLink binds one device session to the voter it is currently acting
// as. The reconciliation engine reads it at the start of a sign-in and
// rewrites it to the winning voter at the end.
type DeviceLink struct {
	ID            int64
	DeviceID      string
	VoterWeVoteID string
	UpdatedAt     time.Time
}

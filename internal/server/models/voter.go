// Package models defines the persistent entities handled by the
// reconciliation engine: voters, identity links, organizations, and the
// dependent record domains that move between voters during a merge.
package models

import "time"

// Voter is one end-user identity. A voter is created anonymously when a new
// client session begins and gains external identities over time through
// sign-in. The provider fields below are cached projections; the
// authoritative owner of an external identity is always the IdentityLink row.
type Voter struct {
	ID       int64
	WeVoteID string

	// Zero or one linked organization, referenced by its permanent id.
	LinkedOrganizationWeVoteID string

	// Cached email values. The master record lives in email_entries,
	// referenced by PrimaryEmailWeVoteID.
	Email                  string
	PrimaryEmailWeVoteID   string
	EmailOwnershipVerified bool

	FirstName  string
	MiddleName string
	LastName   string

	// Cached Twitter attributes.
	TwitterID              int64
	TwitterName            string
	TwitterScreenName      string
	TwitterProfileImageURL string

	// Cached Facebook attributes.
	FacebookID              int64
	FacebookEmail           string
	FacebookProfileImageURL string

	// Hosted copies of the provider profile image, cached at sign-in.
	ProfileImageURLLarge  string
	ProfileImageURLMedium string
	ProfileImageURLTiny   string

	NotificationSettingsFlags uint64
	InterfaceStatusFlags      uint64

	DateJoined      time.Time
	DateLastChanged time.Time
}

// FullName joins the name parts, skipping empty segments.
func (v *Voter) FullName() string {
	name := v.FirstName
	if v.MiddleName != "" {
		if name != "" {
			name += " "
		}
		name += v.MiddleName
	}
	if v.LastName != "" {
		if name != "" {
			name += " "
		}
		name += v.LastName
	}
	return name
}

// PhotoURL prefers the Facebook image, then Twitter, matching the order the
// web client displays them.
func (v *Voter) PhotoURL() string {
	if v.FacebookProfileImageURL != "" {
		return v.FacebookProfileImageURL
	}
	return v.TwitterProfileImageURL
}

// HasVerifiedEmail reports whether this voter holds a verified email. Only
// the verified flag is consulted: cached address fields can be stale after a
// partially failed merge.
func (v *Voter) HasVerifiedEmail() bool {
	return v.EmailOwnershipVerified
}

// IsSignedIn reports whether the voter holds any confirmed external
// identity.
func (v *Voter) IsSignedIn() bool {
	return v.EmailOwnershipVerified || v.TwitterID != 0 || v.FacebookID != 0
}

// HasDataToPreserve reports whether abandoning this voter would lose a
// confirmed identity: a verified email or a cached provider sign-in.
func (v *Voter) HasDataToPreserve() bool {
	return v.EmailOwnershipVerified || v.TwitterID != 0 || v.FacebookID != 0
}

// SetInterfaceStatusFlags turns on every bit set in mask. Bits are never
// cleared during a merge.
func (v *Voter) SetInterfaceStatusFlags(mask uint64) {
	v.InterfaceStatusFlags |= mask
}

// IsInterfaceStatusFlagSet reports whether any bit of mask is set.
func (v *Voter) IsInterfaceStatusFlagSet(mask uint64) bool {
	return v.InterfaceStatusFlags&mask != 0
}

// SetNotificationSettingsFlags turns on every bit set in mask.
func (v *Voter) SetNotificationSettingsFlags(mask uint64) {
	v.NotificationSettingsFlags |= mask
}

// IsNotificationSettingsFlagSet reports whether any bit of mask is set.
func (v *Voter) IsNotificationSettingsFlagSet(mask uint64) bool {
	return v.NotificationSettingsFlags&mask != 0
}

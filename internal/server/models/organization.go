package models

import "time"

// Organization is owned by exactly one voter via the voter's linked
// organization pointer. Organizations representing public provider accounts
// carry their own cached provider attributes, which must stay consistent
// with the identity link.
type Organization struct {
	ID       int64
	WeVoteID string
	Name     string
	Website  string

	// Cached Twitter attributes for provider-linked organizations.
	TwitterID             int64
	TwitterScreenName     string
	TwitterFollowersCount int64

	ProfileImageURL string

	CreatedAt time.Time
}

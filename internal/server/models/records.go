package models

import "time"

// OwnerRef names a record owner during a move: the voter and, where the
// domain denormalizes it, the voter's linked organization.
type OwnerRef struct {
	VoterWeVoteID        string
	OrganizationWeVoteID string
}

// MoveResult reports the outcome of one dependent-record move.
type MoveResult struct {
	Moved   int64
	Skipped int64
}

// Add accumulates another result into r.
func (r *MoveResult) Add(other MoveResult) {
	r.Moved += other.Moved
	r.Skipped += other.Skipped
}

// Position is a stance taken on a ballot item, owned by a voter and
// attributed to the voter's linked organization. The natural key for
// de-duplication is (subject, election).
type Position struct {
	ID                   int64
	WeVoteID             string
	VoterWeVoteID        string
	OrganizationWeVoteID string
	SubjectWeVoteID      string
	ElectionID           int64
	Stance               string
	CreatedAt            time.Time
}

// FollowEntry records that a voter follows an organization or an issue. The
// followed entity's permanent id is the natural key.
type FollowEntry struct {
	ID               int64
	VoterWeVoteID    string
	FollowedWeVoteID string
	CreatedAt        time.Time
}

// FriendLink is a confirmed friendship. The natural key from either side is
// the other party's permanent id.
type FriendLink struct {
	ID                  int64
	ViewerVoterWeVoteID string
	FriendVoterWeVoteID string
	CreatedAt           time.Time
}

// FriendInvitation is a pending invitation, keyed by the recipient.
type FriendInvitation struct {
	ID                     int64
	SenderVoterWeVoteID    string
	RecipientVoterWeVoteID string
	RecipientEmail         string
	CreatedAt              time.Time
}

// EmailEntry is the master record for one email address. The voter's own
// email fields are a cached copy of the primary entry.
type EmailEntry struct {
	ID                int64
	WeVoteID          string
	VoterWeVoteID     string
	Address           string
	OwnershipVerified bool
	CreatedAt         time.Time
}

// Donation records one payment made by a voter.
type Donation struct {
	ID            int64
	VoterWeVoteID string
	AmountCents   int64
	ChargeID      string
	CreatedAt     time.Time
}

// VoterGuide is a per-election guide owned by a voter and published under an
// organization. The election id is the natural key per owner.
type VoterGuide struct {
	ID                   int64
	WeVoteID             string
	OwnerVoterWeVoteID   string
	OrganizationWeVoteID string
	ElectionID           int64
	CreatedAt            time.Time
}

// AnalyticsEvent is one recorded user action.
type AnalyticsEvent struct {
	ID            int64
	VoterWeVoteID string
	Action        string
	ElectionID    int64
	OccurredAt    time.Time
}

// Bookmark marks an object saved by a voter. Bookmarks owned by a voter move
// during a merge; bookmarks attached to an organization being merged are the
// hard-stop condition that requires manual intervention.
type Bookmark struct {
	ID             int64
	VoterWeVoteID  string
	ObjectWeVoteID string
	CreatedAt      time.Time
}

package model

import "time"

const (
	MatchStatusActive    = "active"
	MatchStatusUnmatched = "unmatched"
	MatchStatusBlocked   = "blocked"
	MatchStatusSuspended = "suspended"
)

// Match rows are never hard-deleted; ending a match flips its status.
type Match struct {
	ID        int64     `json:"id"`
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	Status    string    `json:"status"`
	Direct    bool      `json:"direct"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Match) Active() bool {
	return m.Status == MatchStatusActive
}

// OtherUser returns the counterpart of userID in the match.
func (m Match) OtherUser(userID int64) int64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

func (m Match) HasParticipant(userID int64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

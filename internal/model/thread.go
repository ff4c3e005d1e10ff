package model

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	// Thread is the single persistent conversation between two users.
	// Participants are stored in canonical order so the pair itself is the
	// lookup key; messages are embedded and append-only.
	Thread struct {
		ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
		Participants []string           `bson:"participants" json:"participants"`
		Messages     []Message          `bson:"messages" json:"messages"`
		Blocked      bool               `bson:"blocked" json:"blocked"`
		BlockedBy    string             `bson:"blocked_by,omitempty" json:"blocked_by,omitempty"`
		CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
		LastUpdated  time.Time          `bson:"last_updated" json:"last_updated"`
	}

	// ThreadSummary is the trimmed view returned by thread listings.
	ThreadSummary struct {
		ID           string    `json:"id"`
		Participants []string  `json:"participants"`
		LastMessage  string    `json:"last_message,omitempty"`
		Blocked      bool      `json:"blocked"`
		LastUpdated  time.Time `json:"last_updated"`
	}
)

// CanonicalPair sorts two identities into the fixed order used as the
// thread lookup key, so (a, b) and (b, a) address the same thread.
func CanonicalPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

// Summary collapses a thread to its listing form.
func (t *Thread) Summary() ThreadSummary {
	s := ThreadSummary{
		ID:           t.ID.Hex(),
		Participants: t.Participants,
		Blocked:      t.Blocked,
		LastUpdated:  t.LastUpdated,
	}
	if n := len(t.Messages); n > 0 {
		s.LastMessage = t.Messages[n-1].Body
	}
	return s
}

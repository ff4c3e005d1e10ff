package model

import "time"

type (
	// Message is the unit of delivery. The id is assigned by the server at
	// submit time; ids supplied by clients are discarded.
	Message struct {
		ID string `bson:"id" json:"id"`
		// ChatID rides along on pushed events only; the containing
		// thread document is the persisted source of it.
		ChatID      string    `bson:"-" json:"chat_id,omitempty"`
		Sender      string    `bson:"sender" json:"sender"`
		Receiver    string    `bson:"receiver" json:"receiver"`
		Body        string    `bson:"body" json:"body"`
		Attachments []string  `bson:"attachments,omitempty" json:"attachments,omitempty"`
		Status      Status    `bson:"status" json:"status"`
		CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	}
)

package models

import "time"

const (
	StatusSent = "sent"
	StatusSeen = "seen"
)

// Message is the persisted chat record. Exactly one of ReceiverID or GroupID
// is set depending on whether the message targets a user or a group.
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	ReceiverID string    `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`
	GroupID    string    `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Content    string    `bson:"content" json:"content"`
	ReplyTo    string    `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Mention    bool      `bson:"mention,omitempty" json:"mention,omitempty"`
	Status     string    `bson:"status" json:"status"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

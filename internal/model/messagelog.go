package model

import "time"

// MessageLog is one inbound message and its delivery outcome, kept for
// operator visibility.
type MessageLog struct {
	ID         int64     `db:"id" json:"id"`
	MessageID  string    `db:"message_id" json:"message_id"`
	Sender     string    `db:"sender" json:"sender"`
	Question   string    `db:"question" json:"question"`
	Reply      string    `db:"reply" json:"reply"`
	Delivered  bool      `db:"delivered" json:"delivered"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type DailyStats struct {
	Day       time.Time `db:"day" json:"day"`
	Total     int64     `db:"total" json:"total"`
	Delivered int64     `db:"delivered" json:"delivered"`
}

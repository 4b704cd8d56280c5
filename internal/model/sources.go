package model

import "time"

// ClickEvent is produced by the object-storage ("cos") extractor: one
// flattened record per line of a downloaded click-stream file.
type ClickEvent struct {
	EventID     string
	UserID      string
	Page        string
	ReferrerURL string
	OccurredAt  time.Time
}

func (ClickEvent) SourceType() string { return "click_event" }

// OrderEvent is produced by the database ("db") extractor: one row per
// cursor iteration of the rendered SQL template.
type OrderEvent struct {
	OrderID    string
	UserID     string
	AmountCents int64
	Currency   string
	PlacedAt   time.Time
}

func (OrderEvent) SourceType() string { return "order_event" }

// UserDoc is produced by the document-store ("mongo") extractor: a
// denormalized user profile, mirroring the teacher's benchmark User model
// but trimmed to the fields the analytics pipeline actually needs.
type UserDoc struct {
	ID        string
	Username  string
	Email     string
	Country   string
	CreatedAt time.Time
}

func (UserDoc) SourceType() string { return "user_doc" }

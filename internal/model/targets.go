package model

import "time"

// receiveTime is stamped by the transformer at the moment it produces a
// target record; it is the default loader sort field (§6).

// FactClick is the target-model counterpart of ClickEvent.
type FactClick struct {
	EventID     string
	UserID      string
	Page        string
	ReferrerURL string
	OccurredAt  time.Time
	ReceiveTime time.Time
}

func (FactClick) DataType() string { return "fact_click" }

func (FactClick) ColumnOrder() []string {
	return []string{"event_id", "user_id", "page", "referrer_url", "occurred_at", "receive_time"}
}

func (r FactClick) Column(field string) (any, bool) {
	switch field {
	case "event_id":
		return r.EventID, true
	case "user_id":
		return r.UserID, true
	case "page":
		return r.Page, true
	case "referrer_url":
		return nullableString(r.ReferrerURL), true
	case "occurred_at":
		return r.OccurredAt, true
	case "receive_time":
		return r.ReceiveTime, true
	default:
		return nil, false
	}
}

func (r FactClick) SortKey() SortValue { return SortValue{Nanos: r.ReceiveTime.UnixNano()} }

// FactOrder is the target-model counterpart of OrderEvent.
type FactOrder struct {
	OrderID     string
	UserID      string
	AmountCents int64
	Currency    string
	PlacedAt    time.Time
	ReceiveTime time.Time
}

func (FactOrder) DataType() string { return "fact_order" }

func (FactOrder) ColumnOrder() []string {
	return []string{"order_id", "user_id", "amount_cents", "currency", "placed_at", "receive_time"}
}

func (r FactOrder) Column(field string) (any, bool) {
	switch field {
	case "order_id":
		return r.OrderID, true
	case "user_id":
		return r.UserID, true
	case "amount_cents":
		return r.AmountCents, true
	case "currency":
		return nullableString(r.Currency), true
	case "placed_at":
		return r.PlacedAt, true
	case "receive_time":
		return r.ReceiveTime, true
	default:
		return nil, false
	}
}

func (r FactOrder) SortKey() SortValue { return SortValue{Nanos: r.ReceiveTime.UnixNano()} }

// FactUser is the target-model counterpart of UserDoc.
type FactUser struct {
	UserID      string
	Username    string
	Email       string
	Country     string
	CreatedAt   time.Time
	ReceiveTime time.Time
}

func (FactUser) DataType() string { return "fact_user" }

func (FactUser) ColumnOrder() []string {
	return []string{"user_id", "username", "email", "country", "created_at", "receive_time"}
}

func (r FactUser) Column(field string) (any, bool) {
	switch field {
	case "user_id":
		return r.UserID, true
	case "username":
		return r.Username, true
	case "email":
		return r.Email, true
	case "country":
		return nullableString(r.Country), true
	case "created_at":
		return r.CreatedAt, true
	case "receive_time":
		return r.ReceiveTime, true
	default:
		return nil, false
	}
}

func (r FactUser) SortKey() SortValue { return SortValue{Nanos: r.ReceiveTime.UnixNano()} }

// nullableString implements the §4.4 sentinel policy for strings: empty
// becomes nil so the columnar conversion writes a null rather than "".
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

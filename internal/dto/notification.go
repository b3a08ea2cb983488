package dto

// UnreadCountResponse returns the unread notification total.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// MarkAllReadResponse reports how many notifications were updated.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

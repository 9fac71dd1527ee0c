package model

import "time"

type NotificationLevel string

const (
	NotificationInfo  NotificationLevel = "info"
	NotificationWarn  NotificationLevel = "warning"
	NotificationError NotificationLevel = "error"
)

// Notification is the toast the dashboard shows for failures that did not stop the view.
type Notification struct {
	ID        string            `json:"id,omitempty"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	VideoID   string            `json:"video_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

package model

import "time"

// LiveWatch is one video the processor polls.
type LiveWatch struct {
	PageID    string    `json:"page_id"`
	VideoID   string    `json:"video_id"`
	IsLive    bool      `json:"is_live"`
	Paused    bool      `json:"paused"`
	StartedAt time.Time `json:"started_at"`
}

// PostID is the composite id TPOS uses for Facebook posts.
func (w LiveWatch) PostID() string {
	if w.PageID == "" {
		return w.VideoID
	}
	return w.PageID + "_" + w.VideoID
}

// LiveSnapshot is the last computed comment view for a video.
type LiveSnapshot struct {
	VideoID    string              `json:"video_id"`
	Comments   []CommentWithStatus `json:"comments"`
	Stats      ReconcileStats      `json:"stats"`
	Orders     int                 `json:"orders"`
	ComputedAt time.Time           `json:"computed_at"`
}

type JobType string

const (
	// JobReconcile asks the processor for an immediate pass over one video.
	JobReconcile JobType = "reconcile"
)

// LiveJob is the queue payload published by the API.
type LiveJob struct {
	Type        JobType   `json:"type"`
	VideoID     string    `json:"video_id"`
	PageID      string    `json:"page_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

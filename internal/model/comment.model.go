package model

// Commenter is the Facebook identity attached to a comment.
type Commenter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Comment struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	From        Commenter `json:"from"`
	CreatedTime Timestamp `json:"created_time"`
	LikeCount   int       `json:"like_count"`
}

// CommentWithStatus is what the dashboard renders. It is derived on every pass and never stored.
type CommentWithStatus struct {
	Comment
	PartnerStatus   string `json:"partnerStatus"`
	OrderInfo       *Order `json:"orderInfo,omitempty"`
	IsLoadingStatus bool   `json:"isLoadingStatus"`
}

// MergeComments dedupes by comment id. A repeated id replaces the earlier copy in place,
// so the result keeps first-seen order with last-write-wins content.
func MergeComments(existing []Comment, incoming ...[]Comment) []Comment {
	out := make([]Comment, 0, len(existing))
	index := make(map[string]int, len(existing))

	add := func(c Comment) {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			return
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}

	for _, c := range existing {
		add(c)
	}
	for _, page := range incoming {
		for _, c := range page {
			add(c)
		}
	}
	return out
}

// CommenterIDs returns the distinct commenter ids in first-seen order.
func CommenterIDs(comments []Comment) []string {
	seen := make(map[string]struct{}, len(comments))
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.From.ID == "" {
			continue
		}
		if _, ok := seen[c.From.ID]; ok {
			continue
		}
		seen[c.From.ID] = struct{}{}
		ids = append(ids, c.From.ID)
	}
	return ids
}

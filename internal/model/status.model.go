package model

// StatusEntry is what the known-status cache keeps per commenter for the lifetime of a
// live session.
type StatusEntry struct {
	Status     string     `json:"status"`
	Name       string     `json:"name,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	InfoStatus InfoStatus `json:"info_status,omitempty"`
	OrderCode  string     `json:"order_code,omitempty"`
}

// ReconcileStats summarises one pass.
type ReconcileStats struct {
	Comments    int `json:"comments"`
	CacheHits   int `json:"cache_hits"`
	Looked      int `json:"looked_up"`
	Upserted    int `json:"upserted"`
	Strangers   int `json:"strangers"`
	NeedsInfo   int `json:"needs_info"`
	FromRecords int `json:"from_records"`
	FromOrders  int `json:"from_orders"`
}

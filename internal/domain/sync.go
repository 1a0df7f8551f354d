package domain

import "time"

// SyncRecord is one run of the platform poller; the newest successful
// record is the watermark the next ingestion starts from.
type SyncRecord struct {
	ID         int64
	Successful bool
	RanAt      time.Time
	Message    string
}

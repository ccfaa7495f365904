// Package model defines domain entities for the application.
package model

import "time"

// DeviceType classifies the client that produced a click.
type DeviceType string

const (
	DeviceDesktop DeviceType = "Desktop"
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceUnknown DeviceType = "Unknown"
)

// Click is an immutable event recording one resolved redirect.
// Exactly one of URLID/BundleID is set.
type Click struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	URLID    *int64 `json:"url_id,omitempty"`
	BundleID *int64 `json:"bundle_id,omitempty"`

	Referer    string     `json:"referer,omitempty"`    // Referer header (truncated 500 chars)
	UserAgent  string     `json:"user_agent,omitempty"` // UA string (truncated 500 chars)
	DeviceType DeviceType `json:"device_type"`

	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"` // DB insertion time
}

// HourBucket is one point of the hour-grouped click time series.
type HourBucket struct {
	Hour  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// DeviceCount is the click count for one device class.
type DeviceCount struct {
	Device DeviceType `json:"device"`
	Count  int64      `json:"count"`
}

// RefererCount is the click count for one referring site.
type RefererCount struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

// Stats is the aggregated analytics report for a drop.
type Stats struct {
	Title       string         `json:"title"`
	TotalClicks int64          `json:"total_clicks"`
	History     []HourBucket   `json:"clicks_history"`
	Devices     []DeviceCount  `json:"device_stats"`
	TopReferers []RefererCount `json:"top_referers"`
}

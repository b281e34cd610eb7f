package listings

import "time"

// PublishRequest is the body for creating a new listing. Photo upload
// happens elsewhere; only the resulting object URL is recorded here.
type PublishRequest struct {
	Title        string    `json:"title" binding:"required"`
	DeviceType   string    `json:"device_type" binding:"required"`
	Manufacturer string    `json:"manufacturer"`
	Description  string    `json:"description"`
	PhotoURL     string    `json:"photo_url"`
	TimeoutAt    time.Time `json:"timeout_at" binding:"required"`
}

package dto

import "time"

// PulperiaStatusRequest opens or closes the caller's pulperia.
type PulperiaStatusRequest struct {
	Open *bool `json:"open" binding:"required"`
}

// PulperiaResponse describes storefront availability.
type PulperiaResponse struct {
	VendorID  string    `json:"vendor_id"`
	Open      bool      `json:"open"`
	UpdatedAt time.Time `json:"updated_at"`
}

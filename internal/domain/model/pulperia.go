package model

import "time"

// Pulperia holds vendor storefront availability.
type Pulperia struct {
	VendorID  string
	Open      bool
	UpdatedAt time.Time
}

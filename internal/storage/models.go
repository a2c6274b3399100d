package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSampleRecord is a persisted hourly spot price observation.
// Price is nil when the hour errored before a price was obtained.
type PriceSampleRecord struct {
	Hour      time.Time
	Price     *decimal.Decimal
	Avg7d     *decimal.Decimal
	Status    string
	Error     *string
	CreatedAt time.Time
}

// AlertRecord captures an emitted notification for de-duplication and audit.
// The (SampleTS, Device) pair is unique: one notification per device per hour.
type AlertRecord struct {
	ID        int64
	SampleTS  time.Time
	Device    string
	Kind      string
	Price     decimal.Decimal
	Threshold decimal.Decimal
	Message   string
	CreatedAt time.Time
}

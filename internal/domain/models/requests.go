package models

import "time"

// Requests for the scan HTTP endpoints.

type LatestScanRequest struct {
	Limit      int  `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	AlertsOnly bool `query:"alerts_only" json:"alerts_only"`
}

type TickerResultRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=12"`
}

type EvaluateRequest struct {
	Symbol string `json:"symbol" validate:"required,max=12"`
}

// JobTypeScan is the queue message type of an on-demand scan.
const JobTypeScan = "scan.request"

// ScanRequest asks a serving instance for a scan. Empty Tickers means the
// configured watch-list.
type ScanRequest struct {
	Tickers     []string  `json:"tickers,omitempty" validate:"max=500,dive,required,max=12"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

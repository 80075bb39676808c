package domain

import "time"

// ReportStatus tracks a content report through review.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewing ReportStatus = "under_review"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ContentReport is a user complaint about a market's content.
type ContentReport struct {
	ID        string         `json:"id"`
	MarketID  string         `json:"market_id"`
	Reporter  string         `json:"reporter"`
	Type      ModerationType `json:"type"`
	Reason    string         `json:"reason"`
	Status    ReportStatus   `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// EvidenceType classifies the source of a piece of resolution evidence.
type EvidenceType string

const (
	EvidenceTypeScientific   EvidenceType = "scientific"
	EvidenceTypeGovernmental EvidenceType = "governmental"
	EvidenceTypeMedia        EvidenceType = "media"
	EvidenceTypeCommunity    EvidenceType = "community"
	EvidenceTypeOracle       EvidenceType = "oracle"
)

// Evidence is a sourced document supporting one side of a market's
// resolution.
type Evidence struct {
	ID          string       `json:"id"`
	MarketID    string       `json:"market_id"`
	Submitter   string       `json:"submitter"`
	Type        EvidenceType `json:"type"`
	SourceURL   string       `json:"source_url"`
	Description string       `json:"description"`
	Credibility uint8        `json:"credibility"`
	Verified    bool         `json:"verified"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

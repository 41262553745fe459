package storage

import "time"

// Change captures a single snapshot field change for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurredAt"`

	// Identity
	CandyMachine string `json:"candyMachine"`
	Wallet       string `json:"wallet"`

	// Field info
	Field      string `json:"field"`
	OldValue   string `json:"oldValue,omitempty"`
	NewValue   string `json:"newValue,omitempty"`
	ChangeType string `json:"changeType"` // added | updated
}

// MintAttempt is one recorded mint submission.
type MintAttempt struct {
	ID           string        `json:"id"`
	CandyMachine string        `json:"candyMachine"`
	Wallet       string        `json:"wallet"`
	Outcome      string        `json:"outcome"`
	Signature    string        `json:"signature,omitempty"`
	Mint         string        `json:"mint,omitempty"`
	Message      string        `json:"message,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}

type OutcomeStats struct {
	Outcome string
	Count   int
}

// Stats summarizes what the database holds.
type Stats struct {
	TrackedFields int
	Changes       int
	Attempts      []OutcomeStats
}

package models

import "time"

// RepairReport summarises the writes applied by one per-account repair.
type RepairReport struct {
	AccountID        string     `json:"account_id"`
	Mode             string     `json:"mode"`
	LookbackMonths   int        `json:"lookback_months"`
	Inserted         int        `json:"inserted"`
	Updated          int        `json:"updated"`
	Deleted          int        `json:"deleted"`
	Unchanged        int        `json:"unchanged"`
	OpenDateInferred bool       `json:"open_date_inferred"`
	OpenDate         *time.Time `json:"open_date,omitempty"` // set when OpenDateInferred
	ComputedAt       time.Time  `json:"computed_at"`
}

// Changed reports whether the repair wrote anything.
func (r *RepairReport) Changed() bool {
	return r.Inserted+r.Updated+r.Deleted > 0 || r.OpenDateInferred
}

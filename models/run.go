package models

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// NonTerminalStatuses are the statuses that block a new run for the same
// integration from being admitted.
var NonTerminalStatuses = []RunStatus{RunStatusPending, RunStatusRunning, RunStatusPartial}

func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// MaxRunErrors caps the error ledger per run. The final slot is reserved for
// the ERROR_CAP_REACHED sentinel; entries past the cap are dropped.
const MaxRunErrors = 500

type RunCounters struct {
	Processed int64 `json:"processed" bson:"processed"`
	Created   int64 `json:"created" bson:"created"`
	Updated   int64 `json:"updated" bson:"updated"`
	Failed    int64 `json:"failed" bson:"failed"`
}

type RunError struct {
	At      time.Time         `json:"at" bson:"at"`
	Code    SyncErrorCode     `json:"code" bson:"code"`
	Message string            `json:"message" bson:"message"`
	Context map[string]string `json:"context,omitempty" bson:"context,omitempty"`
}

// ImportRun is one catalog synchronization attempt for one integration.
type ImportRun struct {
	ID             string      `json:"id" bson:"_id"`
	IntegrationID  string      `json:"integration_id" bson:"integration_id"`
	Status         RunStatus   `json:"status" bson:"status"`
	Cursor         *string     `json:"cursor,omitempty" bson:"cursor,omitempty"`
	Counters       RunCounters `json:"counters" bson:"counters"`
	Errors         []RunError  `json:"errors" bson:"errors"`
	StartedAt      time.Time   `json:"started_at" bson:"started_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	LastProgressAt time.Time   `json:"last_progress_at" bson:"last_progress_at"`
}

// RecordError appends to the run's error ledger, enforcing the cap: the first
// MaxRunErrors-1 entries are stored verbatim, the next one is replaced by a
// single cap sentinel, and everything after that is dropped.
func (r *ImportRun) RecordError(code SyncErrorCode, message string, context map[string]string) {
	switch {
	case len(r.Errors) < MaxRunErrors-1:
		r.Errors = append(r.Errors, RunError{
			At:      time.Now().UTC(),
			Code:    code,
			Message: message,
			Context: context,
		})
	case len(r.Errors) == MaxRunErrors-1:
		r.Errors = append(r.Errors, RunError{
			At:      time.Now().UTC(),
			Code:    ErrCodeErrorCapReached,
			Message: fmt.Sprintf("error cap of %d reached; further errors for this run are suppressed", MaxRunErrors),
		})
	}
}

// CursorValue returns the persisted cursor or "" when the run starts from the
// beginning of the catalog.
func (r *ImportRun) CursorValue() string {
	if r.Cursor == nil {
		return ""
	}
	return *r.Cursor
}

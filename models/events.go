package models

import "time"

// Run lifecycle event types published to Kafka.
const (
	EventRunStarted      = "run.started"
	EventRunCheckpointed = "run.checkpointed"
	EventRunFinished     = "run.finished"
)

type RunEvent struct {
	Type          string      `json:"type"`
	RunID         string      `json:"run_id"`
	IntegrationID string      `json:"integration_id"`
	Status        RunStatus   `json:"status"`
	Counters      RunCounters `json:"counters"`
	At            time.Time   `json:"at"`
}

package types

import (
	"gopkg.in/guregu/null.v3"
)

// GenerationProgress is stored on the group row while a run is in flight so
// pollers can observe advancement week by week.
type GenerationProgress struct {
	CurrentWeek int    `json:"currentWeek"`
	TotalWeeks  int    `json:"totalWeeks"`
	Stage       string `json:"stage"`
}

// GenerationResult summarizes one finished run.
type GenerationResult struct {
	WeeksCharted  int     `json:"weeksCharted"`
	FailedMembers []int64 `json:"failedMembers"`
	Aborted       bool    `json:"aborted"`
}

// GenerateStatus is the externally visible run state of a group.
// LastFailedMembers and LastRunAborted are single-read diagnostics: they are
// consumed by the read that returns them.
type GenerateStatus struct {
	InProgress        bool                `json:"inProgress"`
	Progress          *GenerationProgress `json:"progress,omitempty"`
	LastFailedMembers []int64             `json:"lastFailedMembers,omitempty"`
	LastRunAborted    null.Bool           `json:"lastRunAborted,omitempty" swaggertype:"boolean"`
	CanGenerateMore   bool                `json:"canGenerateMore"`
}

// GenerationTask is the NATS payload enqueued by the trigger surface.
type GenerationTask struct {
	TaskID  string `json:"taskId"`
	GroupID int64  `json:"groupId"`
}

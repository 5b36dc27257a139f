package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is the single export record handed to the report-writer collaborator
// when a session is finalized. The engine never persists it itself.
type Report struct {
	SessionID      uuid.UUID       `json:"session_id"`
	Mode           string          `json:"mode"`
	WeightGrams    int             `json:"weight_grams,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	RunTime        time.Duration   `json:"run_time"`
	FinalState     string          `json:"final_state"`
	Samples        []Sample        `json:"samples"`
	Metrics        []PowerMetric   `json:"metrics"`
	ChannelResults []ChannelResult `json:"channel_results,omitempty"`
	Plan           *SectorPlan     `json:"plan,omitempty"`
	Warnings       []Warning       `json:"warnings"`
	DoorOpenCount  int             `json:"door_open_count"`
	Verdict        Verdict         `json:"verdict"`
}

// TickSnapshot is what the presentation collaborator receives once per
// sampling tick: latest live metrics, current state, and warnings raised
// since the previous tick. It is a value copy; presenters can hold it freely.
type TickSnapshot struct {
	SessionID   uuid.UUID           `json:"session_id"`
	State       string              `json:"state"`
	Timestamp   time.Time           `json:"ts"`
	Elapsed     time.Duration       `json:"elapsed"`
	Voltages    map[Channel]float64 `json:"voltages,omitempty"`
	Live        []PowerMetric       `json:"live,omitempty"`
	NewWarnings []Warning           `json:"new_warnings,omitempty"`
}

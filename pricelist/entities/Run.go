package entities

import (
	"math"
	"time"
)

// Coverage counts rows going into and out of the normalization step.
type Coverage struct {
	Input   int `json:"input_rows"`
	Output  int `json:"output_rows"`
	Dropped int `json:"dropped_rows"`
}

// Add accumulates another coverage count.
func (c *Coverage) Add(other Coverage) {
	c.Input += other.Input
	c.Output += other.Output
	c.Dropped += other.Dropped
}

// Percent returns the share of input rows retained, rounded to 2 decimals.
// An empty input lost nothing and reports 100.
func (c Coverage) Percent() float64 {
	if c.Input == 0 {
		return 100
	}
	return math.Round(float64(c.Output)*100/float64(c.Input)*100) / 100
}

// FileSummary describes one processed source file.
type FileSummary struct {
	Path     string    `json:"path"`
	Date     time.Time `json:"date"`
	Coverage Coverage  `json:"coverage"`
}

// RunSummary is the persisted record of an ingestion run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Coverage   Coverage  `json:"coverage"`
}

// RunResult is the full output of an ingestion run, ready to be persisted.
type RunResult struct {
	RunSummary
	Rows  []NormalizedRow
	Files []FileSummary
}

package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Transcript errors.
var (
	ErrRunAlreadyExists = errors.New("transcript run already exists")
	ErrRunNotStarted    = errors.New("transcript run not started")
	ErrRunNotFound      = errors.New("transcript run not found")
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Call records a single LLM call: which node made it, what was sent, and
// what came back.
type Call struct {
	ID        int           `json:"id"`
	Node      string        `json:"node"`
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	TokensIn  int           `json:"tokensIn"`
	TokensOut int           `json:"tokensOut"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Meta summarizes a recorded run.
type Meta struct {
	RunID          string    `json:"runId"`
	FlowID         string    `json:"flowId"`
	Status         RunStatus `json:"status"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt,omitempty"`
	CallCount      int       `json:"callCount"`
	TotalTokensIn  int       `json:"totalTokensIn"`
	TotalTokensOut int       `json:"totalTokensOut"`
	Error          string    `json:"error,omitempty"`
}

// Transcript is the full record of a run's LLM traffic.
type Transcript struct {
	RunID    string `json:"runId"`
	Metadata Meta   `json:"metadata"`
	Calls    []Call `json:"calls"`
}

const fileName = "transcript.json"

// Save writes the transcript under baseDir/runs/<runID>/.
func (t *Transcript) Save(baseDir string) error {
	dir := filepath.Join(baseDir, "runs", t.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0644)
}

// Load reads a saved transcript.
func Load(baseDir, runID string) (*Transcript, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "runs", runID, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", runID, err)
	}
	return &t, nil
}

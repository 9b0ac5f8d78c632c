package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// RunStatus is the lifecycle state of one Resolver.Run invocation.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persistent record of one Resolver.Run call.
//
// Schema constraints (frozen): must include run_id, backend, start_time,
// and status. graph_hash and end_time are populated once known.
type Run struct {
	RunID     string    `json:"run_id"`
	Backend   string    `json:"backend"`
	GraphHash string    `json:"graph_hash,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Status    RunStatus `json:"status"`
}

func (r Run) Validate() error {
	var errs []error
	if strings.TrimSpace(r.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if strings.TrimSpace(r.Backend) == "" {
		errs = append(errs, errors.New("backend is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	switch r.Status {
	case RunStatusStarted, RunStatusSucceeded, RunStatusFailed:
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Checkpoint is a durable record that one task finished, successfully or
// not, during a run.
//
// Schema constraints (frozen): must include unique_key, timestamp, and
// cached. output_hash is empty for a cache hit recorded purely for
// visibility (no new bytes were written).
type Checkpoint struct {
	UniqueKey  aqueduct.UniqueKey `json:"unique_key"`
	Timestamp  time.Time          `json:"timestamp"`
	OutputHash string             `json:"output_hash"`
	Cached     bool               `json:"cached"`
}

func (c Checkpoint) Validate() error {
	var errs []error
	if strings.TrimSpace(string(c.UniqueKey)) == "" {
		errs = append(errs, errors.New("unique_key is required"))
	}
	if c.Timestamp.IsZero() {
		errs = append(errs, errors.New("timestamp is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Failure is a recorded run termination reason.
//
// Schema constraints (frozen): must include kind and message; unique_key is
// empty for a failure with no single attributable task (e.g. a backend
// spec parse error).
type Failure struct {
	Kind      aqueduct.Kind      `json:"kind"`
	UniqueKey aqueduct.UniqueKey `json:"unique_key,omitempty"`
	Message   string             `json:"message"`
}

func (f Failure) Validate() error {
	var errs []error
	if strings.TrimSpace(string(f.Kind)) == "" {
		errs = append(errs, errors.New("kind is required"))
	}
	if strings.TrimSpace(f.Message) == "" {
		errs = append(errs, errors.New("message is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// FailureFromError classifies err into a Failure record, unwrapping an
// *aqueduct.Error for its Kind and UniqueKey when present.
func FailureFromError(err error) Failure {
	var aqErr *aqueduct.Error
	if errors.As(err, &aqErr) {
		return Failure{Kind: aqErr.Kind, UniqueKey: aqErr.UniqueKey, Message: err.Error()}
	}
	return Failure{Kind: "Unknown", Message: err.Error()}
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJob decodes a job message into a paddock and checks the fields every
// report needs. A missing job ID falls back to the message key.
func ParseJob(raw RawEvent) (Paddock, error) {
	var p Paddock
	if err := json.Unmarshal(raw.Value, &p); err != nil {
		return Paddock{}, fmt.Errorf("parse job: %w: %w", ErrInvalidJob, err)
	}
	if p.JobID == "" {
		p.JobID = string(raw.Key)
	}
	if err := ValidatePaddock(p); err != nil {
		return Paddock{}, err
	}
	return p, nil
}

// ValidatePaddock checks the fields every report needs. Missing sample dates
// are left for the builder, which reports them with its own error.
func ValidatePaddock(p Paddock) error {
	var problems []string
	if strings.TrimSpace(p.JobID) == "" {
		problems = append(problems, "job_id is required")
	}
	if p.Station <= 0 {
		problems = append(problems, "station must be positive")
	}
	if p.Report == "" {
		problems = append(problems, "report is required")
	}
	for i, l := range p.Sample.Layers {
		if l.Thickness <= 0 {
			problems = append(problems, fmt.Sprintf("sample layer %d has no thickness", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidJob, strings.Join(problems, "; "))
	}
	return nil
}

// SerializeSpec encodes a simulation spec for the sink topic, keyed by its ID.
func SerializeSpec(spec *SimulationSpec) (OutputEvent, error) {
	value, err := json.Marshal(spec)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal simulation spec: %w", err)
	}
	return OutputEvent{
		Key:   []byte(spec.ID.String()),
		Value: value,
		Headers: map[string]string{
			HeaderJobID:   spec.JobID,
			HeaderVariant: spec.Variant,
			HeaderStatus:  StatusOK,
		},
	}, nil
}

// JobError is the payload published when a job cannot be built.
type JobError struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ErrorEvent builds the status=error record for a failed job so the scheduler
// can mark it errored.
func ErrorEvent(jobID string, cause error) OutputEvent {
	value, _ := json.Marshal(JobError{JobID: jobID, Status: StatusError, Error: cause.Error()})
	return OutputEvent{
		Key:   []byte(jobID),
		Value: value,
		Headers: map[string]string{
			HeaderJobID:  jobID,
			HeaderStatus: StatusError,
		},
	}
}

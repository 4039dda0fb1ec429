// Package job models asynchronous embedding jobs and their status documents.
package job

import (
	"errors"
	"fmt"
	"time"
)

// Type selects the worker routine.
type Type string

const (
	// TypeEntityEmbedding embeds one document's text into its vector field.
	TypeEntityEmbedding Type = "entity_embedding"
	// TypeRAGChunks splits a document into embedded retrieval chunks.
	TypeRAGChunks Type = "rag_chunks"
)

// State is the lifecycle state of a job.
type State string

// Job states.
const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// DefaultVectorField receives entity embeddings when a job names none.
const DefaultVectorField = "embedding"

// ErrUnknownType signals a job type no worker routine handles.
var ErrUnknownType = errors.New("unknown job type")

// Job is the queued payload.
type Job struct {
	ID          string         `json:"job_id"`
	Type        Type           `json:"job_type,omitempty"`
	Entity      string         `json:"entity,omitempty"`
	URN         string         `json:"urn,omitempty"`
	IndexName   string         `json:"index_name,omitempty"`
	VectorField string         `json:"vector_field,omitempty"`
	Text        string         `json:"text,omitempty"`
	SourceIndex string         `json:"source_index,omitempty"`
	RAGIndex    string         `json:"rag_index,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EffectiveType returns Type, defaulting to entity embedding.
func (j Job) EffectiveType() Type {
	if j.Type == "" {
		return TypeEntityEmbedding
	}
	return j.Type
}

// TargetVectorField returns VectorField, defaulting to DefaultVectorField.
func (j Job) TargetVectorField() string {
	if j.VectorField == "" {
		return DefaultVectorField
	}
	return j.VectorField
}

// Validate checks the fields required by the job type.
func (j Job) Validate() error {
	switch j.EffectiveType() {
	case TypeEntityEmbedding:
		if j.URN == "" {
			return fmt.Errorf("entity_embedding job requires urn")
		}
		if j.Text == "" || j.IndexName == "" {
			return fmt.Errorf("entity_embedding job requires text and index_name")
		}
	case TypeRAGChunks:
		if j.URN == "" {
			return fmt.Errorf("rag_chunks job requires urn")
		}
		if j.SourceIndex == "" || j.RAGIndex == "" {
			return fmt.Errorf("rag_chunks job requires source_index and rag_index")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, j.Type)
	}
	return nil
}

// Status is the status document stored next to the queue.
type Status struct {
	JobID      string         `json:"job_id"`
	State      State          `json:"status"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Error      *string        `json:"error"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewStatus returns a queued status stamped at now.
func NewStatus(id string, now time.Time) Status {
	return Status{JobID: id, State: StateQueued, EnqueuedAt: now, UpdatedAt: now}
}

// Start moves the status to processing.
func (s Status) Start(now time.Time) Status {
	s.State = StateProcessing
	s.StartedAt = &now
	s.UpdatedAt = now
	return s
}

// Complete moves the status to completed with result metadata and clears the error.
func (s Status) Complete(now time.Time, metadata map[string]any) Status {
	if metadata == nil {
		metadata = map[string]any{}
	}
	s.State = StateCompleted
	s.FinishedAt = &now
	s.UpdatedAt = now
	s.Metadata = metadata
	s.Error = nil
	return s
}

// Fail moves the status to failed with msg.
func (s Status) Fail(now time.Time, msg string) Status {
	s.State = StateFailed
	s.FinishedAt = &now
	s.UpdatedAt = now
	s.Error = &msg
	return s
}

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

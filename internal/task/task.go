// Package task tracks the single outstanding document-ingestion task.
//
// The backend indexes documents asynchronously and offers no completion
// callback, so the client records what it is waiting for in a single
// persisted slot and polls document counts until the slot is satisfied.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Source records how an ingestion was triggered.
type Source string

const (
	SourceText Source = "text"
	SourceFile Source = "file"
)

// Task describes one outstanding ingestion. There is at most one at a time;
// writing a new task overwrites any prior one. Tasks are immutable:
// completion means deletion, not update.
type Task struct {
	// ID is a short identifier for log correlation. It is informational
	// and does not participate in validity.
	ID string `json:"id,omitempty"`

	GroupID string `json:"groupId"`

	// ExpectedMinDocuments is the document count observed immediately
	// before the triggering request, plus one.
	ExpectedMinDocuments int `json:"expectedMinDocuments"`

	Filename  string `json:"filename"`
	Source    Source `json:"source"`
	StartedAt string `json:"startedAt"`
}

// New creates a task for the given group with a fresh ID and timestamp.
func New(groupID string, expectedMinDocuments int, filename string, source Source) Task {
	return Task{
		ID:                   uuid.New().String()[:8],
		GroupID:              groupID,
		ExpectedMinDocuments: expectedMinDocuments,
		Filename:             filename,
		Source:               source,
		StartedAt:            time.Now().UTC().Format(time.RFC3339),
	}
}

// Valid reports whether all required fields are present. A partial record is
// treated as "no task" so corrupted state can never wedge the client shut.
func (t Task) Valid() bool {
	if t.GroupID == "" || t.Filename == "" || t.StartedAt == "" {
		return false
	}
	if t.ExpectedMinDocuments <= 0 {
		return false
	}
	return t.Source == SourceText || t.Source == SourceFile
}

// Satisfied reports whether an observed document count completes the task.
func (t Task) Satisfied(total int) bool {
	return total >= t.ExpectedMinDocuments
}

package models

import "time"

// Study session statuses. Progression is monotonic: in_progress → completed
// → revised; revised can be re-entered by every further revision.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionRevised    = "revised"
)

// StudySession documents live in the "sessions" collection.
//
// Revisions and TotalTime are denormalized counters: they must stay equal to
// the count and summed duration of the Revision records referencing this
// session. Every revision write updates both in the same logical operation.
type StudySession struct {
	ID              string     `json:"id"`
	CourseID        string     `json:"courseId"`
	Type            string     `json:"type"`
	Topic           string     `json:"topic"`
	Date            string     `json:"date"`
	Duration        int        `json:"duration"`
	Notes           string     `json:"notes"`
	Status          string     `json:"status"`
	Revisions       int        `json:"revisions"`
	TotalTime       int        `json:"totalTime"`
	CompletionTime  int        `json:"completionTime,omitempty"`
	CompletionDate  string     `json:"completionDate,omitempty"`
	CompletionNotes string     `json:"completionNotes,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	RevisedAt       *time.Time `json:"revisedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastStudied     time.Time  `json:"lastStudied"`
}

// SessionInput is the user-entered payload for starting a session.
type SessionInput struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Date     string `json:"date"`
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`
}

// SessionCompletion carries the completion details recorded when a session
// is marked completed.
type SessionCompletion struct {
	CompletionTime  int    `json:"completionTime"`
	CompletionDate  string `json:"completionDate"`
	CompletionNotes string `json:"completionNotes"`
}

// Revision documents live in the "revisions" collection, scoped to a single
// session. A revision is immutable once created; its existence always implies
// an increment to the parent session's counters.
type Revision struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Duration  int       `json:"duration"`
	Notes     string    `json:"notes"`
	Date      time.Time `json:"date"`
}

// RevisionInput is the user-entered payload for recording a revision.
type RevisionInput struct {
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`
}

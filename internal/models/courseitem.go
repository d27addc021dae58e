package models

import "time"

// Course item kinds. Lectures and labs are structurally identical besides
// the type tag; they live in separate collections.
const (
	ItemLecture = "lecture"
	ItemLab     = "lab"
)

// Course item statuses. A revision entry may only be appended while the item
// is studied or revised; revising a pending item is rejected.
const (
	ItemPending = "pending"
	ItemStudied = "studied"
	ItemRevised = "revised"
)

// CourseItem documents live in the "lectures" and "labs" collections.
// RevisionCount must equal len(Revisions).
type CourseItem struct {
	ID              string         `json:"id"`
	CourseID        string         `json:"courseId"`
	Type            string         `json:"type"`
	Name            string         `json:"name"`
	Date            string         `json:"date"`
	Duration        int            `json:"duration"`
	Description     string         `json:"description"`
	Status          string         `json:"status"`
	StudiedAt       *time.Time     `json:"studiedAt,omitempty"`
	CompletionTime  int            `json:"completionTime,omitempty"`
	CompletionDate  string         `json:"completionDate,omitempty"`
	CompletionNotes string         `json:"completionNotes,omitempty"`
	RevisedAt       *time.Time     `json:"revisedAt,omitempty"`
	RevisionCount   int            `json:"revisionCount"`
	Revisions       []ItemRevision `json:"revisions"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// ItemRevision is a revision entry embedded in a lecture/lab document.
type ItemRevision struct {
	Date      string    `json:"date"`
	Time      int       `json:"time"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// ItemInput is the user-entered payload for adding a lecture or lab.
type ItemInput struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

// ItemStudyData carries completion details recorded when an item is marked
// studied.
type ItemStudyData struct {
	CompletionTime int    `json:"completionTime"`
	CompletionDate string `json:"completionDate"`
	Notes          string `json:"notes"`
}

// ItemRevisionData carries the payload for revising a studied item.
type ItemRevisionData struct {
	RevisionDate string `json:"revisionDate"`
	RevisionTime int    `json:"revisionTime"`
	Notes        string `json:"notes"`
}

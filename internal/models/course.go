package models

import "time"

// Course documents live in the "courses" collection. Lectures, labs and
// sessions reference a course by CourseID rather than being embedded, so
// deleting a course cascades through the referencing collections.
type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CourseInput is the user-entered payload for creating a course.
type CourseInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

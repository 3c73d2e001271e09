package core

import (
	"time"

	"github.com/google/uuid"
)

// Note is a free-form workspace note, persisted as its own document
// family alongside collections.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewNote creates a note with a fresh id.
func NewNote(title, content string) Note {
	return Note{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		UpdatedAt: time.Now(),
	}
}

// Task is a lightweight workspace todo item.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTask creates an open task with a fresh id.
func NewTask(text string) Task {
	return Task{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: time.Now(),
	}
}

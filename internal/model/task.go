package model

import "time"

// Task is a to-do item owned by exactly one user.
//
// The JSON shape is the public representation of a task:
//
//	{"id": 1, "content": "Buy milk", "deadline": "2024-12-25"}
//	{"id": 2, "content": "Call mum", "deadline": null}
//
// Deadline is a pointer WITHOUT omitempty so an unset deadline is always
// rendered as an explicit null. OwnerID and CreatedAt are internal.
type Task struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Deadline  *Date     `json:"deadline"`
	OwnerID   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// DeadlineString renders the deadline for templates; "" when unset.
func (t *Task) DeadlineString() string {
	if t.Deadline == nil {
		return ""
	}
	return t.Deadline.String()
}

package model

import "time"

type Status string

const (
	StatusNotStarted  Status = "Not Started"
	StatusInProgress  Status = "In Progress"
	StatusUnderReview Status = "Under Review"
	StatusCompleted   Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusUnderReview, StatusCompleted:
		return true
	}
	return false
}

// Form is the unit of persistence on the backend. On the wire Schema is a
// JSON encoded string, see schema.Normalize.
type Form struct {
	ID          int       `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status,omitempty"`
	Schema      string    `json:"schema"`
	Template    *int      `json:"template,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// FormPatch carries the fields of a partial form update. Nil fields are
// left untouched.
type FormPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Schema      *string `json:"schema,omitempty"`
}

type Template struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"templatename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
}

// ResponseData maps section name to trimmed field label to answer. Answers
// are a string, or a list of strings for checkbox groups.
type ResponseData map[string]map[string]any

type FormResponse struct {
	ID            int          `json:"id"`
	Form          int          `json:"form"`
	ResponseData  ResponseData `json:"response_data"`
	DateSubmitted time.Time    `json:"date_submitted"`
	Sender        string       `json:"sender"`
}

// Submission is the wire payload of POST /forms/{id}/submit/, and the blob
// stored by the local queue while offline.
type Submission struct {
	Form           int          `json:"form"`
	FormTitle      string       `json:"formTitle,omitempty"`
	ResponseData   ResponseData `json:"response_data"`
	Sender         string       `json:"sender"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
}

type User struct {
	ID       int    `json:"id,omitempty"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone_number,omitempty"`
	Password string `json:"password,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Settings is the singleton site identity record. Skills is stored as a JSON
// array in the database and exposed as a slice here.
type Settings struct {
	Title     string
	Bio       string
	Skills    []string
	Email     string
	LinkedIn  string
	UpdatedAt time.Time
}

// Experience is one entry in the work history. A nil EndDate means the
// position is ongoing.
type Experience struct {
	ID          string
	Position    string
	Company     string
	StartDate   time.Time
	EndDate     *time.Time
	Description string
	CreatedAt   time.Time
}

type Project struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Views       int64
	Likes       int64
	CreatedAt   time.Time
}

type Post struct {
	ID        string
	Slug      string
	Title     string
	Body      string
	Published bool
	Views     int64
	Likes     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GuestbookEntry struct {
	ID        string
	Author    string
	Message   string
	CreatedAt time.Time
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Body      string
	CreatedAt time.Time
}

// Session is an admin login session. Tokens are opaque UUIDs delivered as an
// HTTP cookie.
type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Resume holds the extracted text of the most recently uploaded résumé.
// Singleton; replaced on each upload.
type Resume struct {
	Filename   string
	Text       string
	UploadedAt time.Time
}

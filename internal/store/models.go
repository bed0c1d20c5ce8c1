package store

import "time"

type Login struct {
	ID           string
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

type Person struct {
	ID        string
	Slug      string
	Name      string
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Organisation struct {
	ID        string
	Slug      string
	Name      string
	Website   *string
	Image     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Initiative struct {
	ID            string
	Slug          string
	ShortName     string
	FullName      string
	Website       *string
	PDF           string
	Image         *string
	Deadline      *time.Time
	InitiatedDate *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package models

import "time"

type GuestbookEntry struct {
	ID          string
	AuthorID    string
	AuthorEmail string
	Message     string
	CreatedAt   time.Time
}

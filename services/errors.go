package services

import "errors"

var (
	// ErrNotFound is returned when a referenced chat or document record
	// does not exist.
	ErrNotFound = errors.New("chat not found")

	// ErrDuplicate is returned when a conversation record with the same
	// doc_id already exists.
	ErrDuplicate = errors.New("conversation already exists")
)

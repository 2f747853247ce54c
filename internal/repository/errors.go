package repository

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTweetNotFound = errors.New("tweet not found")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrAlreadyMember is returned by Relation.Add when the row exists
	ErrAlreadyMember = errors.New("relation already exists")
	// ErrNotMember is returned by Relation.Remove when nothing was deleted
	ErrNotMember = errors.New("relation does not exist")
)

package service

import "errors"

var (
	// ErrNotStarted is returned by session operations before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrSessionNotFound is returned for an unknown or closed session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoQuestion is returned when no question awaits an answer.
	ErrNoQuestion = errors.New("no question awaiting an answer")
)

package session

import "errors"

var (
	// ErrManagerClosed is returned by SendMessage after Close.
	ErrManagerClosed = errors.New("session manager is closed")

	// ErrEmptyMessage is returned when nothing is left to send after
	// directives are stripped. An error event is emitted as well.
	ErrEmptyMessage = errors.New("message is empty")
)

package services

import "errors"

// Sentinel errors shared across services. Handlers map these to 4xx
// responses; anything else is a 500.
var (
	ErrValidation    = errors.New("validation failed")
	ErrTopicNotFound = errors.New("topic not found")
	ErrNoProgress    = errors.New("no progress for this topic")
	ErrNotCompleted  = errors.New("topic is not completed")
)

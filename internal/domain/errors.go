package domain

import "errors"

// ErrInvalidJob reports a job document that cannot be turned into a paddock.
var ErrInvalidJob = errors.New("invalid job")

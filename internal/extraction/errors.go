package extraction

import "errors"

var (
	// ErrSessionExists reports a begin that raced another begin for the
	// same actor and orb and lost to the unique index.
	ErrSessionExists = errors.New("active extraction session already exists")
)

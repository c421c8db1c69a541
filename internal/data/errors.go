package data

import "errors"

// ErrGrievanceRequired is returned by Create when called without a grievance.
var ErrGrievanceRequired = errors.New("grievance is required")

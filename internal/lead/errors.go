package lead

import "errors"

// Sentinel errors shared by the store implementations so the API can
// map them to response codes.
var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotCandidate signals a domain approval for a domain that is
	// not among the hunt record's candidates.
	ErrNotCandidate = errors.New("domain is not a candidate")
	// ErrDuplicate signals a unique-constraint conflict, e.g. a second
	// audit row for the same company and stage.
	ErrDuplicate = errors.New("record already exists")
)

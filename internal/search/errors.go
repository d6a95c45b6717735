package search

import "errors"

// ErrMissingSearchID is returned when the registry accepted a search but
// sent no searchId back. Nothing is persisted in that case.
var ErrMissingSearchID = errors.New("search created without searchId")

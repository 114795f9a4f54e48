package knowledge

import "errors"

// ErrUnavailable reports that the documents table does not exist, usually
// because migrations have not been applied. Callers check readiness before
// starting work that would half-complete against a missing store.
var ErrUnavailable = errors.New("knowledge store unavailable")

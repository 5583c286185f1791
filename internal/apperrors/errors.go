package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates the caller has no authenticated session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but lacks permission.
var ErrForbidden = errors.New("forbidden")

// ErrSyncInProgress is returned when an operation that rewrites local data is
// requested while a push is still in flight.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrStaleSession indicates an async continuation outlived the session that
// spawned it. Results carrying this error are discarded silently.
var ErrStaleSession = errors.New("stale session")

// ErrOffline indicates an operation that needs the remote gateway was
// requested while the engine considers itself offline.
var ErrOffline = errors.New("offline")

// ErrTransport wraps gateway reachability/timeout failures. Operations
// failing with it are retryable and leave local state untouched.
var ErrTransport = errors.New("transport error")

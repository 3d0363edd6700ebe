package chainpost

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested post or body file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSlug is returned when a slug is empty after normalization.
	ErrInvalidSlug = errors.New("slug is empty after normalization")

	// ErrDuplicateSlug is returned when a slug already exists in the local
	// store or a configured remote store.
	ErrDuplicateSlug = errors.New("slug already exists")

	// ErrInvalidEmail is returned for newsletter signups that fail validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrDuplicateEmail is returned when an email is already subscribed.
	ErrDuplicateEmail = errors.New("email already subscribed")
)

// ValidationError reports a missing required field on a create-post request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// ContentWriteError reports a failed body write. The pipeline aborts before
// touching any metadata store when it sees this.
type ContentWriteError struct {
	Path string
	Err  error
}

func (e *ContentWriteError) Error() string {
	return fmt.Sprintf("write content %s: %v", e.Path, e.Err)
}

func (e *ContentWriteError) Unwrap() error { return e.Err }

// MetadataWriteError reports a failed local metadata insert after the body
// write already succeeded. BodyPath names the orphaned body file so an
// operator can reconcile or remove it.
type MetadataWriteError struct {
	Slug     string
	BodyPath string
	Err      error
}

func (e *MetadataWriteError) Error() string {
	return fmt.Sprintf("insert metadata for %q: %v (body already written at %s)", e.Slug, e.Err, e.BodyPath)
}

func (e *MetadataWriteError) Unwrap() error { return e.Err }

// RemoteStoreError wraps a failure from a configured remote metadata store.
// On the read path it triggers fallback to the local store; on the mirror
// path it is logged and never fails the request.
type RemoteStoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *RemoteStoreError) Unwrap() error { return e.Err }

package deck

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for callers that map errors onto a transport.
type ErrorKind int

const (
	// KindInternal covers persistence and other backend failures.
	KindInternal ErrorKind = iota
	// KindValidation covers malformed or missing request fields.
	KindValidation
	// KindNotFound covers references to unknown records.
	KindNotFound
	// KindUnavailable covers share links that are missing or disabled when viewed.
	KindUnavailable
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingRepository = errors.New("repository is required")
	errMissingCatalog    = errors.New("catalog is required")
	errMissingIDProvider = errors.New("id provider is required")
	errUnknownSlide      = errors.New("slide is not in the catalog")
	errMissingValue      = errors.New("edit value is required")
	errDuplicateSlide    = errors.New("slide id appears more than once")
	errGraveyardRange    = errors.New("graveyard index out of range")
	errLinkNotFound      = errors.New("share link not found")
	errLinkUnavailable   = errors.New("share link unavailable")
	errEmptyComment      = errors.New("comment text is required")
	errCommentTooLong    = errors.New("comment text too long")
	errLinkIDExhausted   = errors.New("could not allocate a free link id")
)

// ServiceError carries a dotted operation.reason code and the kind of failure.
type ServiceError struct {
	code string
	kind ErrorKind
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation.reason code.
func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns the failure classification.
func (e *ServiceError) Kind() ErrorKind {
	return e.kind
}

func newServiceError(operation, reason string, kind ErrorKind, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}

// KindOf returns the kind of a ServiceError in the chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.kind
	}
	return KindInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsNotFound reports whether err refers to an unknown record.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsUnavailable reports whether err refers to a missing or disabled share link.
func IsUnavailable(err error) bool {
	return err != nil && KindOf(err) == KindUnavailable
}

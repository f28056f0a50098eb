package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and lookups when an entity does not exist.
var ErrNotFound = errors.New("not found")

type ErrorKind string

const (
	KindReferenceNotFound ErrorKind = "reference_not_found"
	KindEmptyContent      ErrorKind = "empty_content"
	KindInvalidCount      ErrorKind = "invalid_count"
	KindSelfApproval      ErrorKind = "self_approval"
)

type Entity string

const (
	EntityPOS    Entity = "POS"
	EntityUser   Entity = "User"
	EntityReview Entity = "Review"
)

// Per-kind sentinels; errors.Is(err, ErrSelfApproval) matches any
// *ValidationError of that kind.
var (
	ErrReferenceNotFound = errors.New("referenced entity does not exist")
	ErrEmptyContent      = errors.New("review content cannot be empty")
	ErrInvalidCount      = errors.New("approval count cannot be negative")
	ErrSelfApproval      = errors.New("a user cannot approve their own review")
)

// ValidationError is the only error vocabulary the review workflow surfaces
// for rejected input. Entity and ID are set for KindReferenceNotFound.
type ValidationError struct {
	Kind   ErrorKind
	Entity Entity
	ID     int64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindReferenceNotFound:
		return fmt.Sprintf("%s with ID '%d' does not exist", e.Entity, e.ID)
	case KindEmptyContent:
		return ErrEmptyContent.Error()
	case KindInvalidCount:
		return ErrInvalidCount.Error()
	case KindSelfApproval:
		return ErrSelfApproval.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrReferenceNotFound:
		return e.Kind == KindReferenceNotFound
	case ErrEmptyContent:
		return e.Kind == KindEmptyContent
	case ErrInvalidCount:
		return e.Kind == KindInvalidCount
	case ErrSelfApproval:
		return e.Kind == KindSelfApproval
	}
	return false
}

func NotFound(entity Entity, id int64) *ValidationError {
	return &ValidationError{Kind: KindReferenceNotFound, Entity: entity, ID: id}
}

func Invalid(kind ErrorKind) *ValidationError {
	return &ValidationError{Kind: kind}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrSuperseded signals that a newer version of the course is already published.
	ErrSuperseded = errors.New("newer version already published")
	// ErrLocked signals that a competing transaction holds the row.
	ErrLocked = errors.New("row locked by a concurrent transaction")
	// ErrStaleComments signals that the open comments changed after a summary was compiled.
	ErrStaleComments = errors.New("review comments changed during finalization")
)

const (
	uniqueViolation  = pq.ErrorCode("23505")
	lockNotAvailable = pq.ErrorCode("55P03")
)

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func mapLockNotAvailable(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == lockNotAvailable {
		return ErrLocked
	}
	return err
}

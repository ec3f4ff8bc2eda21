package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the row is absent or soft-deleted.
	ErrNotFound = errors.New("record not found")
	// ErrVoteConflict means a concurrent writer changed the vote row between
	// the read and the conditional write; the caller should re-read and retry.
	ErrVoteConflict = errors.New("vote changed concurrently")
	// ErrDuplicate reports a unique key violation outside the vote tables.
	ErrDuplicate = errors.New("duplicate key")
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func authorColumns(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Select("id", "username")
}

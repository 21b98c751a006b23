package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// nextSequenceNumber generates human-readable document numbers of the form
// PREFIX-YYYY-NNNNNN. The counter is the number of rows created in the
// current year, soft-deleted rows included. On postgres an advisory lock
// keyed by the prefix serializes concurrent generators within the
// transaction; other dialects rely on their own write serialization.
func nextSequenceNumber(db *gorm.DB, entity interface{}, prefix string, now time.Time) (string, error) {
	year := now.Year()
	key := fmt.Sprintf("%s-%d", prefix, year)

	if db.Dialector.Name() == "postgres" {
		db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key)
	}

	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, now.Location())
	yearEnd := yearStart.AddDate(1, 0, 0)

	var count int64
	err := db.Unscoped().
		Model(entity).
		Where("created_at >= ? AND created_at < ?", yearStart, yearEnd).
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%d-%06d", prefix, year, count+1), nil
}

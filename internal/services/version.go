package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextVersion returns the stamp for an accepted write: wall-clock
// milliseconds, forced strictly greater than the previous stamp so two
// writes landing in the same millisecond remain distinguishable.
func NextVersion(prev uint64) uint64 {
	now := uint64(time.Now().UnixMilli())
	if now <= prev {
		return prev + 1
	}
	return now
}

// lockForUpdate applies a row lock where the driver supports it. SQLite
// serializes writers on its own and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	switch tx.Dialector.Name() {
	case "mysql", "postgres", "sqlserver":
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

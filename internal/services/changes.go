package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// ChangePageSize is the fixed page size of the incremental feed.
const ChangePageSize = 50

// Change patch kinds.
const (
	ChangeKindReplace = "replace"
	ChangeKindDelta   = "delta"
	ChangeKindRestore = "restore"
)

// ChangePatch is the payload stored with each change-feed entry: the delta
// that was applied, the full document of a replacement, or a restore marker.
type ChangePatch struct {
	Kind            string                  `json:"kind"`
	Delta           *models.ProjectDelta    `json:"delta,omitempty"`
	Project         *models.ProjectDocument `json:"project,omitempty"`
	RestoredVersion uint64                  `json:"restoredVersion,omitempty"`
}

// ChangeEntry is one feed entry as returned to clients.
type ChangeEntry struct {
	Version   uint64          `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	Patch     json.RawMessage `json:"patch"`
}

// ChangesPage is one page of the incremental feed.
type ChangesPage struct {
	Changes       []ChangeEntry `json:"changes"`
	LatestVersion uint64        `json:"latestVersion"`
	HasMore       bool          `json:"hasMore"`
}

// recordChange appends one entry to the per-owner change feed. Ordering is
// by the table's auto-increment id, not the version stamp.
func recordChange(tx *gorm.DB, userID string, version uint64, patch ChangePatch) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to serialize change patch: %w", err)
	}
	return tx.Create(&models.ProjectChange{
		UserID:  userID,
		Version: version,
		Patch:   models.JSON{JSON: datatypes.JSON(raw)},
	}).Error
}

// ChangesSince returns the applied patches recorded after the supplied
// checkpoint version, at most ChangePageSize at a time. HasMore signals the
// client to re-query with the last returned version as the new checkpoint.
// A malformed stored patch becomes a null entry rather than failing the
// whole page.
func ChangesSince(db *gorm.DB, userID string, since uint64) (*ChangesPage, error) {
	q := db.Model(&models.ProjectChange{}).
		Where("user_id = ? AND version > ?", userID, since).
		Order("change_id ASC").
		Limit(ChangePageSize)
	if db.Dialector.Name() == "mysql" {
		q = q.Clauses(hints.UseIndex("idx_change_user_version"))
	}

	var rows []models.ProjectChange
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &ChangesPage{
		Changes: make([]ChangeEntry, 0, len(rows)),
		HasMore: len(rows) == ChangePageSize,
	}
	for _, r := range rows {
		entry := ChangeEntry{Version: r.Version, CreatedAt: r.CreatedAt}
		raw := []byte(r.Patch.JSON)
		if json.Valid(raw) {
			entry.Patch = json.RawMessage(raw)
		}
		page.Changes = append(page.Changes, entry)
	}

	var meta models.ProjectMeta
	if err := db.Where("user_id = ?", userID).First(&meta).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		page.LatestVersion = meta.Version
	}

	return page, nil
}

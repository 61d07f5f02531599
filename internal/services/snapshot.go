package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/Thisisbailin/Script2Video-sub002/internal/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// SnapshotRetain is how many snapshots survive retention pruning.
	SnapshotRetain = 10
	// SnapshotListLimit caps the display window of ListSnapshots.
	SnapshotListLimit = 20
)

// SnapshotInfo is one entry of the snapshot listing.
type SnapshotInfo struct {
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// CaptureSnapshot stores the pre-write document keyed by the version it
// preserves, then prunes retention. A snapshot already present for that
// exact version is left alone; snapshots are immutable once written.
func CaptureSnapshot(tx *gorm.DB, userID string, version uint64, doc *models.ProjectDocument) error {
	if doc == nil {
		return nil
	}

	var count int64
	if err := tx.Model(&models.ProjectSnapshot{}).
		Where("user_id = ? AND version = ?", userID, version).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	snap := models.ProjectSnapshot{
		UserID:   userID,
		Version:  version,
		Document: models.JSON{JSON: datatypes.JSON(raw)},
	}
	if err := tx.Create(&snap).Error; err != nil {
		return err
	}

	return pruneSnapshots(tx, userID)
}

// pruneSnapshots keeps only the newest SnapshotRetain snapshots by version.
func pruneSnapshots(tx *gorm.DB, userID string) error {
	var versions []uint64
	if err := tx.Model(&models.ProjectSnapshot{}).
		Where("user_id = ?", userID).
		Order("version DESC").
		Limit(SnapshotRetain).
		Pluck("version", &versions).Error; err != nil {
		return err
	}
	if len(versions) < SnapshotRetain {
		return nil
	}
	return tx.Where("user_id = ? AND version < ?", userID, versions[len(versions)-1]).
		Delete(&models.ProjectSnapshot{}).Error
}

// ListSnapshots returns the retained snapshots newest-first, capped to the
// display window.
func ListSnapshots(db *gorm.DB, userID string) ([]SnapshotInfo, error) {
	var rows []models.ProjectSnapshot
	if err := db.Where("user_id = ?", userID).
		Order("version DESC").
		Limit(SnapshotListLimit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	infos := make([]SnapshotInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, SnapshotInfo{Version: r.Version, CreatedAt: r.CreatedAt})
	}
	return infos, nil
}

// RestoreSnapshot makes a retained snapshot the live document. Restore is a
// write, not a time-travel pointer move: the current document is archived
// first (so restoring is itself undoable) and the restored state receives a
// fresh version strictly greater than any prior one.
func RestoreSnapshot(db *gorm.DB, userID string, target uint64) (uint64, error) {
	var newVersion uint64
	err := db.Transaction(func(tx *gorm.DB) error {
		var snap models.ProjectSnapshot
		if err := tx.Where("user_id = ? AND version = ?", userID, target).
			First(&snap).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrSnapshotNotFound
			}
			return err
		}

		// A corrupt or outdated snapshot must never silently become the live
		// document.
		var doc models.ProjectDocument
		if err := json.Unmarshal([]byte(snap.Document.JSON), &doc); err != nil {
			return types.NewValidationError("snapshot", "stored document is not valid JSON: %v", err)
		}
		if err := validation.ValidateDocument(&doc); err != nil {
			return err
		}

		var meta models.ProjectMeta
		exists := true
		if err := lockForUpdate(tx).Where("user_id = ?", userID).First(&meta).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				exists = false
			} else {
				return err
			}
		}

		var prev uint64
		if exists {
			prev = meta.Version
			current, err := AssembleProject(tx, userID)
			if err != nil {
				return err
			}
			if err := CaptureSnapshot(tx, userID, prev, current); err != nil {
				return err
			}
		}

		stamp := NextVersion(prev)
		if err := ReplaceProject(tx, userID, &doc, stamp); err != nil {
			return err
		}

		if err := recordChange(tx, userID, stamp, ChangePatch{
			Kind:            ChangeKindRestore,
			RestoredVersion: target,
		}); err != nil {
			return err
		}

		// Restoring invalidates the previous idempotency token on purpose;
		// a replay of the pre-restore write must not be treated as applied.
		res := tx.Model(&models.ProjectMeta{}).
			Where("user_id = ? AND version = ?", userID, prev).
			Updates(map[string]interface{}{"version": stamp, "last_write_token": ""})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &types.ConflictError{CurrentVersion: prev}
		}

		newVersion = stamp
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

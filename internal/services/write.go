package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/Thisisbailin/Script2Video-sub002/internal/validation"
	"gorm.io/gorm"
)

// MaxMetaBytes caps the serialized meta record. Scripts and style guides
// live in the single meta row, so an unbounded string field would otherwise
// grow it without limit.
const MaxMetaBytes = 1_800_000

// WriteOutcome reports an accepted or replayed write.
type WriteOutcome struct {
	Version   uint64
	Duplicate bool
}

// SaveProject replaces the owner's whole document after the optimistic
// concurrency gate passes. Everything not present in doc is gone afterwards.
func SaveProject(db *gorm.DB, userID string, base *uint64, token string, doc *models.ProjectDocument) (WriteOutcome, error) {
	if err := validation.ValidateDocument(doc); err != nil {
		return WriteOutcome{}, err
	}
	if err := checkMetaSize(&doc.Meta); err != nil {
		return WriteOutcome{}, err
	}

	return writeProject(db, userID, base, token,
		func(stamp uint64) ChangePatch {
			return ChangePatch{Kind: ChangeKindReplace, Project: doc}
		},
		func(tx *gorm.DB, stamp uint64) error {
			return ReplaceProject(tx, userID, doc, stamp)
		})
}

// ApplyProjectDelta merges a partial change set after the optimistic
// concurrency gate passes.
func ApplyProjectDelta(db *gorm.DB, userID string, base *uint64, token string, delta *models.ProjectDelta) (WriteOutcome, error) {
	if err := validation.ValidateDelta(delta); err != nil {
		return WriteOutcome{}, err
	}

	return writeProject(db, userID, base, token,
		func(stamp uint64) ChangePatch {
			return ChangePatch{Kind: ChangeKindDelta, Delta: delta}
		},
		func(tx *gorm.DB, stamp uint64) error {
			return applyDelta(tx, userID, delta, stamp)
		})
}

// writeProject runs the version-stamped write protocol shared by full
// replacement, delta apply and restore:
//
//  1. lock the meta row (the per-owner concurrency anchor),
//  2. replay check against the last idempotency token,
//  3. base-version check, rejecting with the freshly assembled current
//     document on mismatch,
//  4. archive the pre-write document as a snapshot,
//  5. mutate the decomposed collections,
//  6. append the change-feed entry,
//  7. stamp the new version conditionally on the old one, last, so a torn
//     write can only ever surface as a stale version.
func writeProject(db *gorm.DB, userID string, base *uint64, token string,
	patch func(stamp uint64) ChangePatch,
	mutate func(tx *gorm.DB, stamp uint64) error) (WriteOutcome, error) {

	var out WriteOutcome
	err := db.Transaction(func(tx *gorm.DB) error {
		var meta models.ProjectMeta
		exists := true
		if err := lockForUpdate(tx).Where("user_id = ?", userID).First(&meta).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				exists = false
			} else {
				return err
			}
		}

		// Replay-safe retry: the same token as the last applied write means
		// the client never saw our ack. Report success with the stored
		// version and touch nothing.
		if exists && token != "" && token == meta.LastWriteToken {
			out = WriteOutcome{Version: meta.Version, Duplicate: true}
			return nil
		}

		// First write is accepted unconditionally; after that the caller
		// must name the version it based its edit on.
		if exists && (base == nil || *base != meta.Version) {
			current, err := AssembleProject(tx, userID)
			if err != nil {
				return err
			}
			return &types.ConflictError{CurrentVersion: meta.Version, Current: current}
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
		if err := mutate(tx, stamp); err != nil {
			return err
		}

		if err := recordChange(tx, userID, stamp, patch(stamp)); err != nil {
			return err
		}

		// Version stamp lands last, conditional on the version we read under
		// the lock. Zero rows affected means a racing writer won.
		res := tx.Model(&models.ProjectMeta{}).
			Where("user_id = ? AND version = ?", userID, prev).
			Updates(map[string]interface{}{"version": stamp, "last_write_token": token})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &types.ConflictError{CurrentVersion: prev}
		}

		out = WriteOutcome{Version: stamp}
		return nil
	})
	if err != nil {
		return WriteOutcome{}, err
	}
	return out, nil
}

// checkMetaSize rejects a meta record whose serialized form exceeds the size
// ceiling. Failure, not truncation.
func checkMetaSize(meta *models.ProjectMetaDoc) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize meta: %w", err)
	}
	if len(raw) > MaxMetaBytes {
		return types.ErrMetaTooLarge
	}
	return nil
}

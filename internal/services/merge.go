package services

import (
	"errors"
	"fmt"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Defaults applied when a delta creates an entity without its required
// fields.
const (
	defaultShotDuration = 3.0
	defaultShotType     = "medium"
	defaultShotMovement = "static"
	defaultStatus       = "draft"
)

// applyDelta merges a partial change set into the stored entities. Absent
// fields are "no change"; the deletion manifest is authoritative and the only
// way a delta removes an entity. Every touched row is stamped with the
// write's version stamp. Runs inside the write transaction.
func applyDelta(tx *gorm.DB, userID string, delta *models.ProjectDelta, stamp uint64) error {
	if err := applyMetaPatch(tx, userID, delta.Meta); err != nil {
		return err
	}
	if err := applyEpisodeUpserts(tx, userID, delta.Episodes, stamp); err != nil {
		return err
	}
	if err := applySceneUpserts(tx, userID, delta.Scenes, stamp); err != nil {
		return err
	}
	if err := applyShotUpserts(tx, userID, delta.Shots, stamp); err != nil {
		return err
	}
	if err := applyCharacterUpserts(tx, userID, delta.Characters, stamp); err != nil {
		return err
	}
	if err := applyLocationUpserts(tx, userID, delta.Locations, stamp); err != nil {
		return err
	}
	if delta.Deletions != nil {
		if err := applyDeletions(tx, userID, delta.Deletions, stamp); err != nil {
			return err
		}
	}
	return nil
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setText(dst *models.LongText, src *string) {
	if src != nil {
		*dst = models.LongText(*src)
	}
}

// applyMetaPatch shallow-merges the patch into the meta record, with one
// nested merge level for the context sub-object. Enforces the serialized
// size ceiling before writing.
func applyMetaPatch(tx *gorm.DB, userID string, patch *models.MetaPatch) error {
	meta := models.ProjectMeta{UserID: userID}
	if err := tx.Where("user_id = ?", userID).FirstOrCreate(&meta).Error; err != nil {
		return err
	}
	if patch == nil {
		return nil
	}

	setStr(&meta.Title, patch.Title)
	setStr(&meta.FileName, patch.FileName)
	setText(&meta.SourceText, patch.SourceText)
	setText(&meta.VisualGuide, patch.VisualGuide)
	setText(&meta.AudioGuide, patch.AudioGuide)
	if patch.Stats != nil {
		meta.Stats = *patch.Stats
	}
	if patch.Context != nil {
		if patch.Context.ProjectSummary != nil {
			meta.Context.ProjectSummary = *patch.Context.ProjectSummary
		}
		if len(patch.Context.EpisodeSummaries) > 0 {
			if meta.Context.EpisodeSummaries == nil {
				meta.Context.EpisodeSummaries = make(map[string]string, len(patch.Context.EpisodeSummaries))
			}
			for k, v := range patch.Context.EpisodeSummaries {
				meta.Context.EpisodeSummaries[k] = v
			}
		}
		if patch.Context.CharacterOverview != nil {
			meta.Context.CharacterOverview = *patch.Context.CharacterOverview
		}
		if patch.Context.LocationOverview != nil {
			meta.Context.LocationOverview = *patch.Context.LocationOverview
		}
	}

	if err := checkMetaSize(&models.ProjectMetaDoc{
		Title:       meta.Title,
		FileName:    meta.FileName,
		SourceText:  string(meta.SourceText),
		VisualGuide: string(meta.VisualGuide),
		AudioGuide:  string(meta.AudioGuide),
		Stats:       meta.Stats,
		Context:     meta.Context,
	}); err != nil {
		return err
	}

	return tx.Model(&models.ProjectMeta{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"title":        meta.Title,
			"file_name":    meta.FileName,
			"source_text":  meta.SourceText,
			"visual_guide": meta.VisualGuide,
			"audio_guide":  meta.AudioGuide,
			"stats":        meta.Stats,
			"context":      meta.Context,
		}).Error
}

func applyEpisodeUpserts(tx *gorm.DB, userID string, ups []models.EpisodeUpsert, stamp uint64) error {
	for _, u := range ups {
		var row models.EpisodeRow
		err := tx.Where("user_id = ? AND episode_id = ?", userID, u.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.EpisodeRow{UserID: userID, EpisodeID: u.ID, Status: defaultStatus}
		} else if err != nil {
			return err
		}
		setStr(&row.Title, u.Title)
		setText(&row.Content, u.Content)
		setStr(&row.Status, u.Status)
		setText(&row.Error, u.Error)
		if u.Usage != nil {
			row.Usage = *u.Usage
		}
		row.Version = stamp
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func applySceneUpserts(tx *gorm.DB, userID string, ups []models.SceneUpsert, stamp uint64) error {
	for _, u := range ups {
		var row models.SceneRow
		err := tx.Where("user_id = ? AND episode_id = ? AND scene_id = ?", userID, u.EpisodeID, u.ID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.SceneRow{UserID: userID, EpisodeID: u.EpisodeID, SceneID: u.ID}
		} else if err != nil {
			return err
		}
		setStr(&row.Title, u.Title)
		setText(&row.Content, u.Content)
		row.Version = stamp
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func applyShotUpserts(tx *gorm.DB, userID string, ups []models.ShotUpsert, stamp uint64) error {
	for _, u := range ups {
		var row models.ShotRow
		err := tx.Where("user_id = ? AND episode_id = ? AND shot_id = ?", userID, u.EpisodeID, u.ID).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.ShotRow{
				UserID:    userID,
				EpisodeID: u.EpisodeID,
				ShotID:    u.ID,
				Duration:  defaultShotDuration,
				ShotType:  defaultShotType,
				Movement:  defaultShotMovement,
			}
		} else if err != nil {
			return err
		}
		if u.Duration != nil {
			row.Duration = *u.Duration
		}
		setStr(&row.ShotType, u.ShotType)
		setStr(&row.Movement, u.Movement)
		setText(&row.Description, u.Description)
		setText(&row.Dialogue, u.Dialogue)
		setText(&row.Prompt, u.Prompt)
		setStr(&row.Lighting, u.Lighting)
		setStr(&row.AudioNotes, u.AudioNotes)
		setStr(&row.Transition, u.Transition)
		row.Version = stamp
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func applyCharacterUpserts(tx *gorm.DB, userID string, ups []models.CharacterUpsert, stamp uint64) error {
	for _, u := range ups {
		var row models.CharacterRow
		found, err := findCharacter(tx, userID, u.ID, u.Name, &row)
		if err != nil {
			return err
		}
		if !found {
			id := u.ID
			if id == "" {
				id = uuid.NewString()
			}
			row = models.CharacterRow{UserID: userID, CharacterID: id}
		}
		setStr(&row.Name, u.Name)
		setStr(&row.Role, u.Role)
		setText(&row.Description, u.Description)
		setText(&row.Prompt, u.Prompt)

		removed := mergeForms(&row, u)
		row.Version = stamp
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := syncCharacterAssets(tx, userID, &row, removed, stamp); err != nil {
			return err
		}
	}
	return nil
}

// findCharacter matches by id, falling back to exact name equality when the
// id is absent.
func findCharacter(tx *gorm.DB, userID, id string, name *string, row *models.CharacterRow) (bool, error) {
	var err error
	switch {
	case id != "":
		err = tx.Where("user_id = ? AND character_id = ?", userID, id).First(row).Error
	case name != nil && *name != "":
		err = tx.Where("user_id = ? AND name = ?", userID, *name).First(row).Error
	default:
		return false, fmt.Errorf("character upsert requires an id or a name")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// mergeForms applies the nested form list semantics and returns the ids of
// forms removed by the operation (for asset pruning).
//
// merge: match by id, update matched fields in place, append unmatched
// incoming entries, then apply the deletion set. replace: rebuild from the
// incoming list, dropping anything not present, still honoring the deletion
// set.
func mergeForms(row *models.CharacterRow, u models.CharacterUpsert) []string {
	before := make(map[string]bool, len(row.Forms))
	for _, f := range row.Forms {
		before[f.ID] = true
	}

	mode := u.FormsMode
	if mode == "" {
		mode = models.NestedModeMerge
	}

	if mode == models.NestedModeReplace && u.Forms != nil {
		// Rebuild from the incoming list alone; omitted fields fall back to
		// defaults rather than surviving from the stored entry.
		rebuilt := make([]models.CharacterForm, 0, len(u.Forms))
		for _, fu := range u.Forms {
			form := models.CharacterForm{ID: fu.ID}
			applyFormUpsert(&form, fu)
			rebuilt = append(rebuilt, form)
		}
		row.Forms = rebuilt
	} else {
		for _, fu := range u.Forms {
			matched := false
			for i := range row.Forms {
				if row.Forms[i].ID == fu.ID {
					applyFormUpsert(&row.Forms[i], fu)
					matched = true
					break
				}
			}
			if !matched {
				form := models.CharacterForm{ID: fu.ID}
				if form.ID == "" {
					form.ID = uuid.NewString()
				}
				applyFormUpsert(&form, fu)
				row.Forms = append(row.Forms, form)
			}
		}
	}

	if len(u.DeleteFormIDs) > 0 {
		drop := make(map[string]bool, len(u.DeleteFormIDs))
		for _, id := range u.DeleteFormIDs {
			drop[id] = true
		}
		kept := row.Forms[:0]
		for _, f := range row.Forms {
			if !drop[f.ID] {
				kept = append(kept, f)
			}
		}
		row.Forms = kept
	}

	after := make(map[string]bool, len(row.Forms))
	for _, f := range row.Forms {
		after[f.ID] = true
	}
	var removed []string
	for id := range before {
		if !after[id] {
			removed = append(removed, id)
		}
	}
	return removed
}

func applyFormUpsert(f *models.CharacterForm, u models.FormUpsert) {
	setStr(&f.Name, u.Name)
	setStr(&f.Age, u.Age)
	setStr(&f.Gender, u.Gender)
	setStr(&f.Build, u.Build)
	setStr(&f.Height, u.Height)
	setStr(&f.SkinTone, u.SkinTone)
	setStr(&f.HairStyle, u.HairStyle)
	setStr(&f.HairColor, u.HairColor)
	setStr(&f.EyeColor, u.EyeColor)
	setStr(&f.Expression, u.Expression)
	setStr(&f.Pose, u.Pose)
	setStr(&f.Outfit, u.Outfit)
	setStr(&f.Footwear, u.Footwear)
	setStr(&f.Accessories, u.Accessories)
	setStr(&f.Makeup, u.Makeup)
	setStr(&f.Props, u.Props)
	setStr(&f.Palette, u.Palette)
	setStr(&f.Style, u.Style)
	setStr(&f.Notes, u.Notes)
	setStr(&f.Prompt, u.Prompt)
}

// syncCharacterAssets prunes design assets referencing removed forms and
// refreshes labels on assets whose character or form was renamed.
func syncCharacterAssets(tx *gorm.DB, userID string, row *models.CharacterRow, removed []string, stamp uint64) error {
	if len(removed) > 0 {
		if err := tx.Where("user_id = ? AND kind = ? AND owner_id = ? AND ref_id IN ?",
			userID, models.AssetKindCharacter, row.CharacterID, removed).
			Delete(&models.DesignAssetRow{}).Error; err != nil {
			return err
		}
	}

	names := make(map[string]string, len(row.Forms))
	for _, f := range row.Forms {
		names[f.ID] = f.Name
	}

	var assets []models.DesignAssetRow
	if err := tx.Where("user_id = ? AND kind = ? AND owner_id = ? AND ref_id <> ''",
		userID, models.AssetKindCharacter, row.CharacterID).Find(&assets).Error; err != nil {
		return err
	}
	for _, a := range assets {
		formName, ok := names[a.RefID]
		if !ok {
			// Dangling reference left by an earlier partial write.
			if err := tx.Where("user_id = ? AND asset_id = ?", userID, a.AssetID).
				Delete(&models.DesignAssetRow{}).Error; err != nil {
				return err
			}
			continue
		}
		label := assetLabel(row.Name, formName)
		if a.Label != label {
			if err := tx.Model(&models.DesignAssetRow{}).
				Where("user_id = ? AND asset_id = ?", userID, a.AssetID).
				Updates(map[string]interface{}{"label": label, "version": stamp}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// assetLabel embeds the parent's current name and the nested entry's current
// name into the asset's display label.
func assetLabel(parent, nested string) string {
	return parent + " · " + nested
}

func applyLocationUpserts(tx *gorm.DB, userID string, ups []models.LocationUpsert, stamp uint64) error {
	for _, u := range ups {
		var row models.LocationRow
		found, err := findLocation(tx, userID, u.ID, u.Name, &row)
		if err != nil {
			return err
		}
		if !found {
			id := u.ID
			if id == "" {
				id = uuid.NewString()
			}
			row = models.LocationRow{UserID: userID, LocationID: id}
		}
		setStr(&row.Name, u.Name)
		setText(&row.Description, u.Description)
		setText(&row.Prompt, u.Prompt)

		removed := mergeZones(&row, u)
		row.Version = stamp
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := syncLocationAssets(tx, userID, &row, removed, stamp); err != nil {
			return err
		}
	}
	return nil
}

func findLocation(tx *gorm.DB, userID, id string, name *string, row *models.LocationRow) (bool, error) {
	var err error
	switch {
	case id != "":
		err = tx.Where("user_id = ? AND location_id = ?", userID, id).First(row).Error
	case name != nil && *name != "":
		err = tx.Where("user_id = ? AND name = ?", userID, *name).First(row).Error
	default:
		return false, fmt.Errorf("location upsert requires an id or a name")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// mergeZones mirrors mergeForms for location zones.
func mergeZones(row *models.LocationRow, u models.LocationUpsert) []string {
	before := make(map[string]bool, len(row.Zones))
	for _, z := range row.Zones {
		before[z.ID] = true
	}

	mode := u.ZonesMode
	if mode == "" {
		mode = models.NestedModeMerge
	}

	if mode == models.NestedModeReplace && u.Zones != nil {
		rebuilt := make([]models.LocationZone, 0, len(u.Zones))
		for _, zu := range u.Zones {
			zone := models.LocationZone{ID: zu.ID}
			applyZoneUpsert(&zone, zu)
			rebuilt = append(rebuilt, zone)
		}
		row.Zones = rebuilt
	} else {
		for _, zu := range u.Zones {
			matched := false
			for i := range row.Zones {
				if row.Zones[i].ID == zu.ID {
					applyZoneUpsert(&row.Zones[i], zu)
					matched = true
					break
				}
			}
			if !matched {
				zone := models.LocationZone{ID: zu.ID}
				if zone.ID == "" {
					zone.ID = uuid.NewString()
				}
				applyZoneUpsert(&zone, zu)
				row.Zones = append(row.Zones, zone)
			}
		}
	}

	if len(u.DeleteZoneIDs) > 0 {
		drop := make(map[string]bool, len(u.DeleteZoneIDs))
		for _, id := range u.DeleteZoneIDs {
			drop[id] = true
		}
		kept := row.Zones[:0]
		for _, z := range row.Zones {
			if !drop[z.ID] {
				kept = append(kept, z)
			}
		}
		row.Zones = kept
	}

	after := make(map[string]bool, len(row.Zones))
	for _, z := range row.Zones {
		after[z.ID] = true
	}
	var removed []string
	for id := range before {
		if !after[id] {
			removed = append(removed, id)
		}
	}
	return removed
}

func applyZoneUpsert(z *models.LocationZone, u models.ZoneUpsert) {
	setStr(&z.Name, u.Name)
	setStr(&z.Description, u.Description)
	setStr(&z.Lighting, u.Lighting)
	setStr(&z.TimeOfDay, u.TimeOfDay)
	setStr(&z.Weather, u.Weather)
	setStr(&z.Mood, u.Mood)
	setStr(&z.KeyProps, u.KeyProps)
	setStr(&z.Palette, u.Palette)
	setStr(&z.Prompt, u.Prompt)
}

func syncLocationAssets(tx *gorm.DB, userID string, row *models.LocationRow, removed []string, stamp uint64) error {
	if len(removed) > 0 {
		if err := tx.Where("user_id = ? AND kind = ? AND owner_id = ? AND ref_id IN ?",
			userID, models.AssetKindLocation, row.LocationID, removed).
			Delete(&models.DesignAssetRow{}).Error; err != nil {
			return err
		}
	}

	names := make(map[string]string, len(row.Zones))
	for _, z := range row.Zones {
		names[z.ID] = z.Name
	}

	var assets []models.DesignAssetRow
	if err := tx.Where("user_id = ? AND kind = ? AND owner_id = ? AND ref_id <> ''",
		userID, models.AssetKindLocation, row.LocationID).Find(&assets).Error; err != nil {
		return err
	}
	for _, a := range assets {
		zoneName, ok := names[a.RefID]
		if !ok {
			if err := tx.Where("user_id = ? AND asset_id = ?", userID, a.AssetID).
				Delete(&models.DesignAssetRow{}).Error; err != nil {
				return err
			}
			continue
		}
		label := assetLabel(row.Name, zoneName)
		if a.Label != label {
			if err := tx.Model(&models.DesignAssetRow{}).
				Where("user_id = ? AND asset_id = ?", userID, a.AssetID).
				Updates(map[string]interface{}{"label": label, "version": stamp}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// applyDeletions removes the entities named by the manifest. Episode
// deletion cascades to that episode's scenes and shots; character and
// location deletion cascades to their design assets.
func applyDeletions(tx *gorm.DB, userID string, m *models.DeletionManifest, stamp uint64) error {
	if len(m.EpisodeIDs) > 0 {
		if err := tx.Where("user_id = ? AND episode_id IN ?", userID, m.EpisodeIDs).
			Delete(&models.EpisodeRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND episode_id IN ?", userID, m.EpisodeIDs).
			Delete(&models.SceneRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND episode_id IN ?", userID, m.EpisodeIDs).
			Delete(&models.ShotRow{}).Error; err != nil {
			return err
		}
	}
	for _, k := range m.Scenes {
		if err := tx.Where("user_id = ? AND episode_id = ? AND scene_id = ?", userID, k.EpisodeID, k.SceneID).
			Delete(&models.SceneRow{}).Error; err != nil {
			return err
		}
	}
	for _, k := range m.Shots {
		if err := tx.Where("user_id = ? AND episode_id = ? AND shot_id = ?", userID, k.EpisodeID, k.ShotID).
			Delete(&models.ShotRow{}).Error; err != nil {
			return err
		}
	}
	if len(m.CharacterIDs) > 0 {
		if err := tx.Where("user_id = ? AND character_id IN ?", userID, m.CharacterIDs).
			Delete(&models.CharacterRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND kind = ? AND owner_id IN ?",
			userID, models.AssetKindCharacter, m.CharacterIDs).
			Delete(&models.DesignAssetRow{}).Error; err != nil {
			return err
		}
	}
	if len(m.LocationIDs) > 0 {
		if err := tx.Where("user_id = ? AND location_id IN ?", userID, m.LocationIDs).
			Delete(&models.LocationRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND kind = ? AND owner_id IN ?",
			userID, models.AssetKindLocation, m.LocationIDs).
			Delete(&models.DesignAssetRow{}).Error; err != nil {
			return err
		}
	}
	return nil
}

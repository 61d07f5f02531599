package services

import (
	"errors"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"gorm.io/gorm"
)

// AssembleProject reconstructs the full logical document for an owner from
// the decomposed collections. Returns nil when no meta record exists.
// Ordering is deterministic: episodes ascending by id, scenes and shots
// ascending by (episode id, child id), characters/locations/assets ascending
// by id.
func AssembleProject(tx *gorm.DB, userID string) (*models.ProjectDocument, error) {
	var meta models.ProjectMeta
	if err := tx.Where("user_id = ?", userID).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	doc := &models.ProjectDocument{
		Meta: models.ProjectMetaDoc{
			Title:       meta.Title,
			FileName:    meta.FileName,
			SourceText:  string(meta.SourceText),
			VisualGuide: string(meta.VisualGuide),
			AudioGuide:  string(meta.AudioGuide),
			Stats:       meta.Stats,
			Context:     meta.Context,
			Version:     meta.Version,
		},
		Episodes:     []models.EpisodeDoc{},
		Characters:   []models.CharacterDoc{},
		Locations:    []models.LocationDoc{},
		DesignAssets: []models.DesignAsset{},
	}

	var episodes []models.EpisodeRow
	if err := tx.Where("user_id = ?", userID).
		Order("episode_id ASC").Find(&episodes).Error; err != nil {
		return nil, err
	}

	var scenes []models.SceneRow
	if err := tx.Where("user_id = ?", userID).
		Order("episode_id ASC, scene_id ASC").Find(&scenes).Error; err != nil {
		return nil, err
	}
	scenesByEpisode := make(map[int][]models.SceneDoc)
	for _, s := range scenes {
		scenesByEpisode[s.EpisodeID] = append(scenesByEpisode[s.EpisodeID], models.SceneDoc{
			ID:      s.SceneID,
			Title:   s.Title,
			Content: string(s.Content),
			Version: s.Version,
		})
	}

	var shots []models.ShotRow
	if err := tx.Where("user_id = ?", userID).
		Order("episode_id ASC, shot_id ASC").Find(&shots).Error; err != nil {
		return nil, err
	}
	shotsByEpisode := make(map[int][]models.ShotDoc)
	for _, s := range shots {
		shotsByEpisode[s.EpisodeID] = append(shotsByEpisode[s.EpisodeID], models.ShotDoc{
			ID:          s.ShotID,
			Duration:    s.Duration,
			ShotType:    s.ShotType,
			Movement:    s.Movement,
			Description: string(s.Description),
			Dialogue:    string(s.Dialogue),
			Prompt:      string(s.Prompt),
			Lighting:    s.Lighting,
			AudioNotes:  s.AudioNotes,
			Transition:  s.Transition,
			Version:     s.Version,
		})
	}

	for _, e := range episodes {
		ep := models.EpisodeDoc{
			ID:      e.EpisodeID,
			Title:   e.Title,
			Content: string(e.Content),
			Status:  e.Status,
			Error:   string(e.Error),
			Usage:   e.Usage,
			Scenes:  scenesByEpisode[e.EpisodeID],
			Shots:   shotsByEpisode[e.EpisodeID],
			Version: e.Version,
		}
		if ep.Scenes == nil {
			ep.Scenes = []models.SceneDoc{}
		}
		if ep.Shots == nil {
			ep.Shots = []models.ShotDoc{}
		}
		doc.Episodes = append(doc.Episodes, ep)
	}

	var characters []models.CharacterRow
	if err := tx.Where("user_id = ?", userID).
		Order("character_id ASC").Find(&characters).Error; err != nil {
		return nil, err
	}
	for _, c := range characters {
		forms := c.Forms
		if forms == nil {
			forms = []models.CharacterForm{}
		}
		doc.Characters = append(doc.Characters, models.CharacterDoc{
			ID:          c.CharacterID,
			Name:        c.Name,
			Role:        c.Role,
			Description: string(c.Description),
			Prompt:      string(c.Prompt),
			Forms:       forms,
			Version:     c.Version,
		})
	}

	var locations []models.LocationRow
	if err := tx.Where("user_id = ?", userID).
		Order("location_id ASC").Find(&locations).Error; err != nil {
		return nil, err
	}
	for _, l := range locations {
		zones := l.Zones
		if zones == nil {
			zones = []models.LocationZone{}
		}
		doc.Locations = append(doc.Locations, models.LocationDoc{
			ID:          l.LocationID,
			Name:        l.Name,
			Description: string(l.Description),
			Prompt:      string(l.Prompt),
			Zones:       zones,
			Version:     l.Version,
		})
	}

	var assets []models.DesignAssetRow
	if err := tx.Where("user_id = ?", userID).
		Order("asset_id ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	for _, a := range assets {
		doc.DesignAssets = append(doc.DesignAssets, models.DesignAsset{
			ID:       a.AssetID,
			Kind:     a.Kind,
			Label:    a.Label,
			ImageURL: a.ImageURL,
			Prompt:   string(a.Prompt),
			OwnerID:  a.OwnerID,
			RefID:    a.RefID,
		})
	}

	return doc, nil
}

// ReplaceProject performs a full decomposition of doc into per-collection
// rows, replacing everything stored for the owner. Entities absent from doc
// are gone afterwards; this is the destructive counterpart of delta apply.
// The meta version stamp itself is written by the caller as the final
// operation of the transaction.
func ReplaceProject(tx *gorm.DB, userID string, doc *models.ProjectDocument, stamp uint64) error {
	for _, model := range []interface{}{
		&models.EpisodeRow{}, &models.SceneRow{}, &models.ShotRow{},
		&models.CharacterRow{}, &models.LocationRow{}, &models.DesignAssetRow{},
	} {
		if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
			return err
		}
	}

	meta := models.ProjectMeta{UserID: userID}
	if err := tx.Where("user_id = ?", userID).FirstOrCreate(&meta).Error; err != nil {
		return err
	}
	if err := tx.Model(&meta).Updates(map[string]interface{}{
		"title":        doc.Meta.Title,
		"file_name":    doc.Meta.FileName,
		"source_text":  models.LongText(doc.Meta.SourceText),
		"visual_guide": models.LongText(doc.Meta.VisualGuide),
		"audio_guide":  models.LongText(doc.Meta.AudioGuide),
		"stats":        doc.Meta.Stats,
		"context":      doc.Meta.Context,
	}).Error; err != nil {
		return err
	}

	for _, e := range doc.Episodes {
		row := models.EpisodeRow{
			UserID:    userID,
			EpisodeID: e.ID,
			Title:     e.Title,
			Content:   models.LongText(e.Content),
			Status:    e.Status,
			Error:     models.LongText(e.Error),
			Usage:     e.Usage,
			Version:   stamp,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, s := range e.Scenes {
			scene := models.SceneRow{
				UserID:    userID,
				EpisodeID: e.ID,
				SceneID:   s.ID,
				Title:     s.Title,
				Content:   models.LongText(s.Content),
				Version:   stamp,
			}
			if err := tx.Create(&scene).Error; err != nil {
				return err
			}
		}
		for _, s := range e.Shots {
			shot := models.ShotRow{
				UserID:      userID,
				EpisodeID:   e.ID,
				ShotID:      s.ID,
				Duration:    s.Duration,
				ShotType:    s.ShotType,
				Movement:    s.Movement,
				Description: models.LongText(s.Description),
				Dialogue:    models.LongText(s.Dialogue),
				Prompt:      models.LongText(s.Prompt),
				Lighting:    s.Lighting,
				AudioNotes:  s.AudioNotes,
				Transition:  s.Transition,
				Version:     stamp,
			}
			if err := tx.Create(&shot).Error; err != nil {
				return err
			}
		}
	}

	formIDs := make(map[string]map[string]bool)
	for _, c := range doc.Characters {
		row := models.CharacterRow{
			UserID:      userID,
			CharacterID: c.ID,
			Name:        c.Name,
			Role:        c.Role,
			Description: models.LongText(c.Description),
			Prompt:      models.LongText(c.Prompt),
			Forms:       c.Forms,
			Version:     stamp,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		ids := make(map[string]bool, len(c.Forms))
		for _, f := range c.Forms {
			ids[f.ID] = true
		}
		formIDs[c.ID] = ids
	}

	zoneIDs := make(map[string]map[string]bool)
	for _, l := range doc.Locations {
		row := models.LocationRow{
			UserID:      userID,
			LocationID:  l.ID,
			Name:        l.Name,
			Description: models.LongText(l.Description),
			Prompt:      models.LongText(l.Prompt),
			Zones:       l.Zones,
			Version:     stamp,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		ids := make(map[string]bool, len(l.Zones))
		for _, z := range l.Zones {
			ids[z.ID] = true
		}
		zoneIDs[l.ID] = ids
	}

	for _, a := range doc.DesignAssets {
		// Assets bound to an unknown form/zone are dropped to keep the
		// reference invariant intact under a stale full replacement.
		if a.OwnerID != "" && a.RefID != "" {
			switch a.Kind {
			case models.AssetKindCharacter:
				if !formIDs[a.OwnerID][a.RefID] {
					continue
				}
			case models.AssetKindLocation:
				if !zoneIDs[a.OwnerID][a.RefID] {
					continue
				}
			}
		}
		row := models.DesignAssetRow{
			UserID:   userID,
			AssetID:  a.ID,
			Kind:     a.Kind,
			Label:    a.Label,
			ImageURL: a.ImageURL,
			Prompt:   models.LongText(a.Prompt),
			OwnerID:  a.OwnerID,
			RefID:    a.RefID,
			Version:  stamp,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	return nil
}

package helpers

import (
	"testing"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"gorm.io/gorm"
)

// SampleDocument builds a small but fully populated project document for
// tests: two episodes with scenes and shots, one character with a form, one
// location with a zone, and a design asset for each nested entity.
func SampleDocument() *models.ProjectDocument {
	return &models.ProjectDocument{
		Meta: models.ProjectMetaDoc{
			Title:      "Night Harbor",
			FileName:   "night-harbor.txt",
			SourceText: "EXT. HARBOR - NIGHT",
			Context: models.ProjectContext{
				ProjectSummary:   "A smuggler returns to the harbor town she fled.",
				EpisodeSummaries: map[string]string{"1": "The return."},
			},
		},
		Episodes: []models.EpisodeDoc{
			{
				ID:     1,
				Title:  "The Return",
				Status: "complete",
				Scenes: []models.SceneDoc{
					{ID: 1, Title: "Docks at night", Content: "Mara steps off the ferry."},
				},
				Shots: []models.ShotDoc{
					{ID: 1, Duration: 4.5, ShotType: "wide", Movement: "static",
						Description: "Ferry arriving at the dock", Prompt: "wide shot of a night harbor"},
					{ID: 2, Duration: 3.0, ShotType: "close", Movement: "pan",
						Description: "Mara's face in lamplight", Prompt: "close up, harbor lamplight"},
				},
			},
			{
				ID:     2,
				Title:  "Old Debts",
				Status: "draft",
			},
		},
		Characters: []models.CharacterDoc{
			{
				ID:   "char-mara",
				Name: "Mara",
				Forms: []models.CharacterForm{
					{ID: "form-default", Name: "Default", Outfit: "oilskin coat", HairStyle: "short"},
				},
			},
		},
		Locations: []models.LocationDoc{
			{
				ID:   "loc-harbor",
				Name: "Harbor",
				Zones: []models.LocationZone{
					{ID: "zone-docks", Name: "Docks", Lighting: "sodium lamps"},
				},
			},
		},
		DesignAssets: []models.DesignAsset{
			{ID: "asset-mara", Kind: models.AssetKindCharacter, Label: "Mara · Default",
				OwnerID: "char-mara", RefID: "form-default", ImageURL: "https://img.test/mara.png"},
			{ID: "asset-docks", Kind: models.AssetKindLocation, Label: "Harbor · Docks",
				OwnerID: "loc-harbor", RefID: "zone-docks", ImageURL: "https://img.test/docks.png"},
		},
	}
}

// CountRows returns the number of rows the model has for the user.
func CountRows(t *testing.T, db *gorm.DB, model interface{}, userID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

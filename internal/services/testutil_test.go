package services

import (
	"testing"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testUser = "11111111-2222-3333-4444-555555555555"

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.ProjectMeta{},
		&models.EpisodeRow{},
		&models.SceneRow{},
		&models.ShotRow{},
		&models.CharacterRow{},
		&models.LocationRow{},
		&models.DesignAssetRow{},
		&models.ProjectSnapshot{},
		&models.ProjectChange{},
		&models.AuditEntry{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// sampleDocument builds a populated document: two episodes with scenes and
// shots, a character with a form, a location with a zone, and bound design
// assets.
func sampleDocument() *models.ProjectDocument {
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

// seedProject writes the sample document as the first version and returns it.
func seedProject(t *testing.T, db *gorm.DB) uint64 {
	t.Helper()
	outcome, err := SaveProject(db, testUser, nil, "", sampleDocument())
	if err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return outcome.Version
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

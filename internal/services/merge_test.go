package services

import (
	"testing"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaPatchShallowMerge(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	outcome, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Meta: &models.MetaPatch{
			Title: strPtr("Renamed Harbor"),
			Context: &models.ContextPatch{
				EpisodeSummaries: map[string]string{"2": "Old debts resurface."},
			},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	assert.Equal(t, outcome.Version, doc.Version())

	// Patched fields changed, absent fields survived.
	assert.Equal(t, "Renamed Harbor", doc.Meta.Title)
	assert.Equal(t, "night-harbor.txt", doc.Meta.FileName)
	assert.Equal(t, "EXT. HARBOR - NIGHT", doc.Meta.SourceText)

	// Context merges one level deep: summaries merge by key.
	assert.Equal(t, "A smuggler returns to the harbor town she fled.", doc.Meta.Context.ProjectSummary)
	assert.Equal(t, "The return.", doc.Meta.Context.EpisodeSummaries["1"])
	assert.Equal(t, "Old debts resurface.", doc.Meta.Context.EpisodeSummaries["2"])
}

func TestEpisodeUpsertCreatesWithDefaults(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Episodes: []models.EpisodeUpsert{
			{ID: 3, Title: strPtr("New Blood")},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	require.Len(t, doc.Episodes, 3)
	created := doc.Episodes[2]
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, "New Blood", created.Title)
	assert.Equal(t, "draft", created.Status)
}

func TestShotUpsertDefaultsAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	outcome, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Shots: []models.ShotUpsert{
			// New shot with nothing but a description: defaults fill in.
			{EpisodeID: 1, ID: 3, Description: strPtr("A rope goes taut")},
			// Update one field of an existing shot; the rest survive.
			{EpisodeID: 1, ID: 1, Duration: f64Ptr(6.0)},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	shots := doc.Episodes[0].Shots
	require.Len(t, shots, 3)

	assert.Equal(t, 6.0, shots[0].Duration)
	assert.Equal(t, "wide", shots[0].ShotType)
	assert.Equal(t, "Ferry arriving at the dock", shots[0].Description)
	assert.Equal(t, outcome.Version, shots[0].Version)

	created := shots[2]
	assert.Equal(t, defaultShotDuration, created.Duration)
	assert.Equal(t, defaultShotType, created.ShotType)
	assert.Equal(t, defaultShotMovement, created.Movement)
	assert.Equal(t, "A rope goes taut", created.Description)

	// Untouched shot keeps its old row stamp.
	assert.Less(t, shots[1].Version, outcome.Version)
}

func TestFormsMergeMode(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{
				ID:        "char-mara",
				FormsMode: models.NestedModeMerge,
				Forms: []models.FormUpsert{
					{ID: "form-default", Outfit: strPtr("naval uniform")},
					{ID: "form-disguise", Name: strPtr("Disguise"), HairColor: strPtr("grey")},
				},
			},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	forms := doc.Characters[0].Forms
	require.Len(t, forms, 2)

	// Matched entry updated in place, unspecified fields kept.
	assert.Equal(t, "form-default", forms[0].ID)
	assert.Equal(t, "naval uniform", forms[0].Outfit)
	assert.Equal(t, "short", forms[0].HairStyle)

	// Unmatched entry appended.
	assert.Equal(t, "form-disguise", forms[1].ID)
	assert.Equal(t, "Disguise", forms[1].Name)
}

func TestFormsReplaceMode(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{
				ID:        "char-mara",
				FormsMode: models.NestedModeReplace,
				Forms: []models.FormUpsert{
					{ID: "form-default", Name: strPtr("Default")},
					{ID: "form-storm", Name: strPtr("Storm gear")},
				},
			},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	forms := doc.Characters[0].Forms
	require.Len(t, forms, 2)

	// Replace rebuilds every entry from the incoming list: fields omitted
	// there do not survive from the stored form.
	assert.Equal(t, "form-default", forms[0].ID)
	assert.Empty(t, forms[0].Outfit)
	assert.Empty(t, forms[0].HairStyle)
	assert.Equal(t, "form-storm", forms[1].ID)
}

func TestDeleteFormPrunesBoundAssets(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{ID: "char-mara", DeleteFormIDs: []string{"form-default"}},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	assert.Empty(t, doc.Characters[0].Forms)

	// The asset bound to the deleted form is gone; the location asset stays.
	require.Len(t, doc.DesignAssets, 1)
	assert.Equal(t, "asset-docks", doc.DesignAssets[0].ID)
}

func TestRenameRefreshesAssetLabels(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	outcome, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{ID: "char-mara", Name: strPtr("Captain Mara")},
		},
		Locations: []models.LocationUpsert{
			{
				ID: "loc-harbor",
				Zones: []models.ZoneUpsert{
					{ID: "zone-docks", Name: strPtr("North Docks")},
				},
			},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	require.Len(t, doc.DesignAssets, 2)

	byID := map[string]models.DesignAsset{}
	for _, a := range doc.DesignAssets {
		byID[a.ID] = a
	}
	assert.Equal(t, "Captain Mara · Default", byID["asset-mara"].Label)
	assert.Equal(t, "Harbor · North Docks", byID["asset-docks"].Label)

	var asset models.DesignAssetRow
	require.NoError(t, db.Where("user_id = ? AND asset_id = ?", testUser, "asset-mara").First(&asset).Error)
	assert.Equal(t, outcome.Version, asset.Version)
}

func TestCharacterNameFallbackMatch(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	// No id: match on exact name instead of creating a duplicate.
	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{Name: strPtr("Mara"), Role: strPtr("protagonist")},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	require.Len(t, doc.Characters, 1)
	assert.Equal(t, "char-mara", doc.Characters[0].ID)
	assert.Equal(t, "protagonist", doc.Characters[0].Role)
}

func TestCharacterCreatedWithGeneratedID(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Characters: []models.CharacterUpsert{
			{Name: strPtr("Harbormaster")},
		},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	require.Len(t, doc.Characters, 2)
	for _, c := range doc.Characters {
		if c.Name == "Harbormaster" {
			assert.NotEmpty(t, c.ID)
		}
	}
}

func TestEpisodeDeletionCascades(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Deletions: &models.DeletionManifest{EpisodeIDs: []int{1}},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	require.Len(t, doc.Episodes, 1)
	assert.Equal(t, 2, doc.Episodes[0].ID)

	var scenes, shots int64
	require.NoError(t, db.Model(&models.SceneRow{}).Where("user_id = ?", testUser).Count(&scenes).Error)
	require.NoError(t, db.Model(&models.ShotRow{}).Where("user_id = ?", testUser).Count(&shots).Error)
	assert.Zero(t, scenes)
	assert.Zero(t, shots)
}

func TestCharacterDeletionCascadesToAssets(t *testing.T) {
	db := setupTestDB(t)
	v := seedProject(t, db)

	_, err := ApplyProjectDelta(db, testUser, &v, "", &models.ProjectDelta{
		Deletions: &models.DeletionManifest{CharacterIDs: []string{"char-mara"}},
	})
	require.NoError(t, err)

	doc, err := AssembleProject(db, testUser)
	require.NoError(t, err)
	assert.Empty(t, doc.Characters)
	require.Len(t, doc.DesignAssets, 1)
	assert.Equal(t, "asset-docks", doc.DesignAssets[0].ID)
}

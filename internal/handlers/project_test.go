package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/Thisisbailin/Script2Video-sub002/internal/config"
	"github.com/Thisisbailin/Script2Video-sub002/internal/handlers"
	"github.com/Thisisbailin/Script2Video-sub002/internal/middleware"
	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// setupApp wires the project routes behind a stub auth middleware that
// injects a fixed user identity.
func setupApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", testUser)
		return c.Next()
	})

	audit := services.NewAuditor(db)
	projectHandler := &handlers.ProjectHandler{DB: db, Audit: audit}
	snapshotHandler := &handlers.SnapshotHandler{DB: db, Audit: audit}
	changesHandler := &handlers.ChangesHandler{DB: db}

	app.Get("/api/project", projectHandler.GetProject)
	app.Put("/api/project", projectHandler.SaveProject)
	app.Post("/api/project/delta", projectHandler.ApplyDelta)
	app.Get("/api/project/changes", changesHandler.GetChanges)
	app.Get("/api/project/snapshots", snapshotHandler.ListSnapshots)
	app.Post("/api/project/snapshots/:version/restore", snapshotHandler.RestoreSnapshot)

	return app
}

func sampleDocument() *models.ProjectDocument {
	return &models.ProjectDocument{
		Meta: models.ProjectMetaDoc{Title: "Night Harbor"},
		Episodes: []models.EpisodeDoc{
			{ID: 1, Title: "The Return", Status: "draft"},
		},
		Characters: []models.CharacterDoc{
			{ID: "char-mara", Name: "Mara"},
		},
	}
}

func TestGetProjectNotFound(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	req := httptest.NewRequest("GET", "/api/project", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSaveAndGetProject(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	body, _ := json.Marshal(map[string]interface{}{
		"project": sampleDocument(),
	})
	req := httptest.NewRequest("PUT", "/api/project", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var save map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&save))
	assert.Equal(t, true, save["ok"])
	assert.Equal(t, false, save["duplicate"])
	newVersion, ok := save["newVersion"].(string)
	require.True(t, ok)
	assert.NotEqual(t, "0", newVersion)

	req = httptest.NewRequest("GET", "/api/project", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var doc models.ProjectDocument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Night Harbor", doc.Meta.Title)
	assert.Equal(t, newVersion, fmt.Sprintf("%d", doc.Meta.Version))
}

func TestSaveProjectConflictEmbedsCurrentState(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	// Seed through the service to know the stored version.
	outcome, err := services.SaveProject(db, testUser, nil, "", sampleDocument())
	require.NoError(t, err)

	next := sampleDocument()
	next.Meta.Title = "Renamed"
	body, _ := json.Marshal(map[string]interface{}{
		"baseVersion": fmt.Sprintf("%d", outcome.Version-1),
		"project":     next,
	})
	req := httptest.NewRequest("PUT", "/api/project", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var conflict map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflict))
	assert.Equal(t, true, conflict["versionError"])
	assert.Equal(t, "version", conflict["type"])
	assert.Equal(t, fmt.Sprintf("%d", outcome.Version), conflict["currentVersion"])

	project, ok := conflict["project"].(map[string]interface{})
	require.True(t, ok)
	meta := project["meta"].(map[string]interface{})
	assert.Equal(t, "Night Harbor", meta["title"])
}

func TestSaveProjectRejectsMissingBody(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	body := []byte(`{}`)
	req := httptest.NewRequest("PUT", "/api/project", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestApplyDeltaEndpoint(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	outcome, err := services.SaveProject(db, testUser, nil, "", sampleDocument())
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]interface{}{
		"baseVersion":      fmt.Sprintf("%d", outcome.Version),
		"idempotencyToken": "tok-1",
		"delta": map[string]interface{}{
			"meta": map[string]interface{}{"title": "Renamed"},
		},
	})
	req := httptest.NewRequest("POST", "/api/project/delta", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	doc, err := services.AssembleProject(db, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Meta.Title)

	// Replaying the same request reports the applied version as duplicate.
	req = httptest.NewRequest("POST", "/api/project/delta", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var retry map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&retry))
	assert.Equal(t, true, retry["duplicate"])
}

func TestSnapshotRoutes(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	first, err := services.SaveProject(db, testUser, nil, "", sampleDocument())
	require.NoError(t, err)
	base := first.Version
	_, err = services.ApplyProjectDelta(db, testUser, &base, "", &models.ProjectDelta{
		Meta: &models.MetaPatch{Title: ptr("Renamed")},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/project/snapshots", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listing struct {
		Snapshots []services.SnapshotInfo `json:"snapshots"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Snapshots, 1)
	assert.Equal(t, first.Version, listing.Snapshots[0].Version)

	req = httptest.NewRequest("POST",
		fmt.Sprintf("/api/project/snapshots/%d/restore", first.Version), nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	doc, err := services.AssembleProject(db, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Night Harbor", doc.Meta.Title)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	_, err := services.SaveProject(db, testUser, nil, "", sampleDocument())
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/project/snapshots/12345/restore", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChangesEndpoint(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db)

	outcome, err := services.SaveProject(db, testUser, nil, "", sampleDocument())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/project/changes?since=0", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page services.ChangesPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Changes, 1)
	assert.Equal(t, outcome.Version, page.LatestVersion)

	req = httptest.NewRequest("GET", "/api/project/changes?since=notanumber", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSyncGateBlocksUsersOutsideRollout(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var custom *types.CustomError
			if errors.As(err, &custom) {
				return c.Status(custom.Code).JSON(fiber.Map{
					"ok":      false,
					"message": custom.Message,
					"type":    custom.Type,
				})
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", testUser)
		return c.Next()
	})
	gate := services.NewRolloutGate(&config.Config{SyncRolloutPercent: 0})
	app.Use(middleware.SyncGate(gate))
	handler := &handlers.ProjectHandler{DB: db, Audit: services.NewAuditor(db)}
	app.Get("/api/project", handler.GetProject)

	req := httptest.NewRequest("GET", "/api/project", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// No storage rows were touched for the gated user.
	var metas int64
	require.NoError(t, db.Model(&models.ProjectMeta{}).Count(&metas).Error)
	assert.Zero(t, metas)
}

func ptr(s string) *string { return &s }

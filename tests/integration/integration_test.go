package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Thisisbailin/Script2Video-sub002/internal/config"
	"github.com/Thisisbailin/Script2Video-sub002/internal/database"
	"github.com/Thisisbailin/Script2Video-sub002/internal/handlers"
	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/Thisisbailin/Script2Video-sub002/tests/helpers"
	"github.com/gofiber/fiber/v2"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const integrationUser = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"

// TestWithMariaDB tests the sync engine against a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	image := os.Getenv("DB_IMAGE")
	if image == "" {
		image = "mariadb:11"
	}

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Run tests
	t.Run("SaveAndAssemble", func(t *testing.T) {
		testSaveAndAssemble(t, db)
	})

	t.Run("VersionControl", func(t *testing.T) {
		testVersionControl(t, db)
	})

	t.Run("DeltaAndSnapshots", func(t *testing.T) {
		testDeltaAndSnapshots(t, db)
	})

	t.Run("HandlerConflictBehavior", func(t *testing.T) {
		testHandlerConflictBehavior(t, db)
	})
}

// testSaveAndAssemble writes a full document and reads it back through the
// row-per-entity storage.
func testSaveAndAssemble(t *testing.T, db *gorm.DB) {
	doc := helpers.SampleDocument()

	outcome, err := services.SaveProject(db, integrationUser, nil, "", doc)
	if err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	if outcome.Version == 0 {
		t.Error("Expected a nonzero version stamp")
	}

	assembled, err := services.AssembleProject(db, integrationUser)
	if err != nil {
		t.Fatalf("Failed to assemble document: %v", err)
	}
	if assembled == nil {
		t.Fatal("Expected an assembled document")
	}
	if assembled.Meta.Title != doc.Meta.Title {
		t.Errorf("Expected title %q, got %q", doc.Meta.Title, assembled.Meta.Title)
	}
	if assembled.Meta.Version != outcome.Version {
		t.Errorf("Expected version %d, got %d", outcome.Version, assembled.Meta.Version)
	}
	if len(assembled.Episodes) != len(doc.Episodes) {
		t.Errorf("Expected %d episodes, got %d", len(doc.Episodes), len(assembled.Episodes))
	}
}

// testVersionControl exercises the base-version guard against real row locks.
func testVersionControl(t *testing.T, db *gorm.DB) {
	user := integrationUser + "-versions"

	first, err := services.SaveProject(db, user, nil, "", helpers.SampleDocument())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	// Stale base must be rejected without touching storage.
	stale := first.Version - 1
	next := helpers.SampleDocument()
	next.Meta.Title = "Stale Write"
	_, err = services.SaveProject(db, user, &stale, "", next)
	if err == nil {
		t.Fatal("Expected version conflict error")
	}
	var conflict *types.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got: %v", err)
	}
	if conflict.CurrentVersion != first.Version {
		t.Errorf("Expected current version %d, got %d", first.Version, conflict.CurrentVersion)
	}

	// Matching base succeeds and advances the stamp.
	second, err := services.SaveProject(db, user, &first.Version, "", next)
	if err != nil {
		t.Fatalf("Failed to update with correct version: %v", err)
	}
	if second.Version <= first.Version {
		t.Errorf("Expected version to advance past %d, got %d", first.Version, second.Version)
	}
}

// testDeltaAndSnapshots covers the merge path, snapshot capture and restore
// against a real MariaDB schema.
func testDeltaAndSnapshots(t *testing.T, db *gorm.DB) {
	user := integrationUser + "-snapshots"

	first, err := services.SaveProject(db, user, nil, "", helpers.SampleDocument())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	base := first.Version
	second, err := services.ApplyProjectDelta(db, user, &base, "tok-delta", &models.ProjectDelta{
		Meta: &models.MetaPatch{Title: strPtr("Renamed Harbor")},
	})
	if err != nil {
		t.Fatalf("Failed to apply delta: %v", err)
	}

	// Replaying the token must not write again.
	retry, err := services.ApplyProjectDelta(db, user, &base, "tok-delta", &models.ProjectDelta{
		Meta: &models.MetaPatch{Title: strPtr("Renamed Harbor")},
	})
	if err != nil {
		t.Fatalf("Failed idempotent retry: %v", err)
	}
	if !retry.Duplicate || retry.Version != second.Version {
		t.Errorf("Expected duplicate outcome at version %d, got %+v", second.Version, retry)
	}

	snapshots, err := services.ListSnapshots(db, user)
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Version != first.Version {
		t.Fatalf("Expected one snapshot at version %d, got %+v", first.Version, snapshots)
	}

	restoredVersion, err := services.RestoreSnapshot(db, user, first.Version)
	if err != nil {
		t.Fatalf("Failed to restore snapshot: %v", err)
	}
	if restoredVersion <= second.Version {
		t.Errorf("Expected restore to mint a new version past %d, got %d", second.Version, restoredVersion)
	}

	doc, err := services.AssembleProject(db, user)
	if err != nil {
		t.Fatalf("Failed to assemble after restore: %v", err)
	}
	if doc.Meta.Title == "Renamed Harbor" {
		t.Error("Expected restore to roll the title back")
	}

	// The feed saw the replace, the delta and the restore.
	page, err := services.ChangesSince(db, user, 0)
	if err != nil {
		t.Fatalf("Failed to read change feed: %v", err)
	}
	if len(page.Changes) != 3 {
		t.Errorf("Expected 3 feed entries, got %d", len(page.Changes))
	}
	if page.LatestVersion != restoredVersion {
		t.Errorf("Expected latest version %d, got %d", restoredVersion, page.LatestVersion)
	}
}

// testHandlerConflictBehavior checks the 409 envelope through the HTTP layer
// with a real database behind it.
func testHandlerConflictBehavior(t *testing.T, db *gorm.DB) {
	user := integrationUser + "-handler"

	first, err := services.SaveProject(db, user, nil, "", helpers.SampleDocument())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", user)
		return c.Next()
	})
	handler := &handlers.ProjectHandler{DB: db, Audit: services.NewAuditor(db)}
	app.Put("/api/project", handler.SaveProject)

	body, _ := json.Marshal(map[string]interface{}{
		"baseVersion": fmt.Sprintf("%d", first.Version-1),
		"project":     helpers.SampleDocument(),
	})
	req := httptest.NewRequest("PUT", "/api/project", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 409)

	var payload map[string]interface{}
	helpers.ParseJSON(t, resp, &payload)
	if payload["versionError"] != true {
		t.Error("Expected versionError flag in conflict response")
	}
	if payload["currentVersion"] != fmt.Sprintf("%d", first.Version) {
		t.Errorf("Expected currentVersion %d, got %v", first.Version, payload["currentVersion"])
	}
}

// TestHealthCheck tests the health check against a live database and an
// unreachable authorizer.
func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	image := os.Getenv("DB_IMAGE")
	if image == "" {
		image = "mariadb:11"
	}

	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:     "mysql",
		DBHost:     host,
		DBPort:     port.Port(),
		DBDatabase: "testdb",
		DBUser:     "testuser",
		DBPassword: "testpass",
		AuthzURL:   "http://localhost:9999", // Non-existent service
	}

	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	result := services.HealthCheck(cfg, db)

	if result.Database != "ok" {
		t.Errorf("Expected database to be ok, got: %s", result.Database)
	}
	if result.Authorizer != "unreachable" {
		t.Errorf("Expected authorizer to be unreachable, got: %s", result.Authorizer)
	}
	if result.Status != "unhealthy" {
		t.Errorf("Expected status to be unhealthy, got: %s", result.Status)
	}
}

func strPtr(s string) *string { return &s }

package models

import (
	"time"
)

// Decomposed storage layout: one logical project document per owner, split
// into independent collections keyed by user id and natural id. Every row
// carries its own last-modified stamp; the meta row's stamp is the document's
// externally visible version and the optimistic-concurrency anchor.

// ProjectMeta is the singleton meta row per owner.
type ProjectMeta struct {
	UserID         string         `gorm:"primaryKey;type:char(36)"`
	Title          string         `gorm:"size:512"`
	FileName       string         `gorm:"size:512"`
	SourceText     LongText       ``
	VisualGuide    LongText       ``
	AudioGuide     LongText       ``
	Stats          UsageStats     `gorm:"serializer:json"`
	Context        ProjectContext `gorm:"serializer:json"`
	Version        uint64         `gorm:"not null;default:0"`
	LastWriteToken string         `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EpisodeRow is one episode, keyed by (user id, episode id).
type EpisodeRow struct {
	UserID    string     `gorm:"primaryKey;type:char(36)"`
	EpisodeID int        `gorm:"primaryKey;autoIncrement:false"`
	Title     string     `gorm:"size:512"`
	Content   LongText   ``
	Status    string     `gorm:"size:64"`
	Error     LongText   ``
	Usage     UsageStats `gorm:"serializer:json"`
	Version   uint64     `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SceneRow is one scene, keyed by (user id, episode id, scene id).
type SceneRow struct {
	UserID    string   `gorm:"primaryKey;type:char(36)"`
	EpisodeID int      `gorm:"primaryKey;autoIncrement:false"`
	SceneID   int      `gorm:"primaryKey;autoIncrement:false"`
	Title     string   `gorm:"size:512"`
	Content   LongText ``
	Version   uint64   `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShotRow is one storyboard shot, keyed by (user id, episode id, shot id).
type ShotRow struct {
	UserID      string   `gorm:"primaryKey;type:char(36)"`
	EpisodeID   int      `gorm:"primaryKey;autoIncrement:false"`
	ShotID      int      `gorm:"primaryKey;autoIncrement:false"`
	Duration    float64  `gorm:"not null;default:0"`
	ShotType    string   `gorm:"size:64"`
	Movement    string   `gorm:"size:64"`
	Description LongText ``
	Dialogue    LongText ``
	Prompt      LongText ``
	Lighting    string   `gorm:"size:255"`
	AudioNotes  string   `gorm:"size:512"`
	Transition  string   `gorm:"size:64"`
	Version     uint64   `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CharacterRow is one character; the repeatable form list is stored inline
// as a JSON column since forms are only ever read or written through their
// parent character.
type CharacterRow struct {
	UserID      string          `gorm:"primaryKey;type:char(36)"`
	CharacterID string          `gorm:"primaryKey;size:64"`
	Name        string          `gorm:"size:255;not null"`
	Role        string          `gorm:"size:255"`
	Description LongText        ``
	Prompt      LongText        ``
	Forms       []CharacterForm `gorm:"serializer:json"`
	Version     uint64          `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LocationRow is one location with its zone list stored inline, mirroring
// CharacterRow.
type LocationRow struct {
	UserID      string         `gorm:"primaryKey;type:char(36)"`
	LocationID  string         `gorm:"primaryKey;size:64"`
	Name        string         `gorm:"size:255;not null"`
	Description LongText       ``
	Prompt      LongText       ``
	Zones       []LocationZone `gorm:"serializer:json"`
	Version     uint64         `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DesignAssetRow is one design asset descriptor.
type DesignAssetRow struct {
	UserID    string   `gorm:"primaryKey;type:char(36)"`
	AssetID   string   `gorm:"primaryKey;size:64"`
	Kind      string   `gorm:"size:32"`
	Label     string   `gorm:"size:512"`
	ImageURL  string   `gorm:"size:1024"`
	Prompt    LongText ``
	OwnerID   string   `gorm:"size:64;index"`
	RefID     string   `gorm:"size:64"`
	Version   uint64   `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectSnapshot is an immutable pre-write capture of the full document,
// keyed by the version it preserved. Never updated, only pruned.
type ProjectSnapshot struct {
	UserID    string `gorm:"primaryKey;type:char(36)"`
	Version   uint64 `gorm:"primaryKey;autoIncrement:false"`
	Document  JSON   ``
	CreatedAt time.Time
}

// ProjectChange is one entry of the append-only change feed. Ordering is by
// the auto-increment id, independent of the millisecond version stamp.
type ProjectChange struct {
	ChangeID  uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:char(36);not null;index:idx_change_user_version"`
	Version   uint64 `gorm:"not null;index:idx_change_user_version"`
	Patch     JSON   ``
	CreatedAt time.Time
}

// AuditEntry records one request outcome, written best-effort.
type AuditEntry struct {
	EntryID   string `gorm:"primaryKey;type:char(26)"`
	UserID    string `gorm:"type:char(36);index"`
	Action    string `gorm:"size:64"`
	Status    string `gorm:"size:32"`
	Detail    JSON   ``
	CreatedAt time.Time
}

// TableName overrides for natural plural table names.
func (ProjectMeta) TableName() string     { return "project_meta" }
func (EpisodeRow) TableName() string      { return "episodes" }
func (SceneRow) TableName() string        { return "scenes" }
func (ShotRow) TableName() string         { return "shots" }
func (CharacterRow) TableName() string    { return "characters" }
func (LocationRow) TableName() string     { return "locations" }
func (DesignAssetRow) TableName() string  { return "design_assets" }
func (ProjectSnapshot) TableName() string { return "project_snapshots" }
func (ProjectChange) TableName() string   { return "project_changes" }
func (AuditEntry) TableName() string      { return "audit_entries" }

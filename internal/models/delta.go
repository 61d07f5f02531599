package models

// Partial change set applied to the stored entities without requiring the
// full document. Pointer fields distinguish "absent, leave untouched" from
// "present, overwrite"; an explicit deletion manifest is the only way a
// delta removes an entity.

// Nested list merge modes for character forms and location zones.
const (
	NestedModeMerge   = "merge"
	NestedModeReplace = "replace"
)

// ProjectDelta is the top-level partial change set.
type ProjectDelta struct {
	Meta       *MetaPatch        `json:"meta,omitempty"`
	Episodes   []EpisodeUpsert   `json:"episodes,omitempty"`
	Scenes     []SceneUpsert     `json:"scenes,omitempty"`
	Shots      []ShotUpsert      `json:"shots,omitempty"`
	Characters []CharacterUpsert `json:"characters,omitempty"`
	Locations  []LocationUpsert  `json:"locations,omitempty"`
	Deletions  *DeletionManifest `json:"deletions,omitempty"`
}

// Empty reports whether the delta carries no change at all.
func (d *ProjectDelta) Empty() bool {
	return d.Meta == nil &&
		len(d.Episodes) == 0 && len(d.Scenes) == 0 && len(d.Shots) == 0 &&
		len(d.Characters) == 0 && len(d.Locations) == 0 &&
		(d.Deletions == nil || d.Deletions.Empty())
}

// MetaPatch is a shallow merge into the meta record. Context merges one
// further level; Stats replaces the whole counter block when present.
type MetaPatch struct {
	Title       *string       `json:"title,omitempty"`
	FileName    *string       `json:"fileName,omitempty"`
	SourceText  *string       `json:"sourceText,omitempty"`
	VisualGuide *string       `json:"visualGuide,omitempty"`
	AudioGuide  *string       `json:"audioGuide,omitempty"`
	Stats       *UsageStats   `json:"stats,omitempty"`
	Context     *ContextPatch `json:"context,omitempty"`
}

// ContextPatch merges into ProjectContext. EpisodeSummaries merges by key;
// the overview lists replace wholesale when present.
type ContextPatch struct {
	ProjectSummary    *string           `json:"projectSummary,omitempty"`
	EpisodeSummaries  map[string]string `json:"episodeSummaries,omitempty"`
	CharacterOverview *[]string         `json:"characterOverview,omitempty"`
	LocationOverview  *[]string         `json:"locationOverview,omitempty"`
}

// EpisodeUpsert creates or partially updates one episode.
type EpisodeUpsert struct {
	ID      int         `json:"id"`
	Title   *string     `json:"title,omitempty"`
	Content *string     `json:"content,omitempty"`
	Status  *string     `json:"status,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Usage   *UsageStats `json:"usage,omitempty"`
}

// SceneUpsert creates or partially updates one scene.
type SceneUpsert struct {
	EpisodeID int     `json:"episodeId"`
	ID        int     `json:"id"`
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
}

// ShotUpsert creates or partially updates one shot. Required fields omitted
// on create receive defaults.
type ShotUpsert struct {
	EpisodeID   int      `json:"episodeId"`
	ID          int      `json:"id"`
	Duration    *float64 `json:"duration,omitempty"`
	ShotType    *string  `json:"shotType,omitempty"`
	Movement    *string  `json:"movement,omitempty"`
	Description *string  `json:"description,omitempty"`
	Dialogue    *string  `json:"dialogue,omitempty"`
	Prompt      *string  `json:"prompt,omitempty"`
	Lighting    *string  `json:"lighting,omitempty"`
	AudioNotes  *string  `json:"audioNotes,omitempty"`
	Transition  *string  `json:"transition,omitempty"`
}

// CharacterUpsert creates or partially updates one character. Matching is by
// id, falling back to name equality when the id is absent. FormsMode selects
// merge or replace semantics for the nested form list; DeleteFormIDs is
// honored after either mode.
type CharacterUpsert struct {
	ID            string       `json:"id,omitempty"`
	Name          *string      `json:"name,omitempty"`
	Role          *string      `json:"role,omitempty"`
	Description   *string      `json:"description,omitempty"`
	Prompt        *string      `json:"prompt,omitempty"`
	FormsMode     string       `json:"formsMode,omitempty" validate:"omitempty,oneof=merge replace"`
	Forms         []FormUpsert `json:"forms,omitempty"`
	DeleteFormIDs []string     `json:"deleteFormIds,omitempty"`
}

// FormUpsert partially updates or appends one character form.
type FormUpsert struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Age         *string `json:"age,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Build       *string `json:"build,omitempty"`
	Height      *string `json:"height,omitempty"`
	SkinTone    *string `json:"skinTone,omitempty"`
	HairStyle   *string `json:"hairStyle,omitempty"`
	HairColor   *string `json:"hairColor,omitempty"`
	EyeColor    *string `json:"eyeColor,omitempty"`
	Expression  *string `json:"expression,omitempty"`
	Pose        *string `json:"pose,omitempty"`
	Outfit      *string `json:"outfit,omitempty"`
	Footwear    *string `json:"footwear,omitempty"`
	Accessories *string `json:"accessories,omitempty"`
	Makeup      *string `json:"makeup,omitempty"`
	Props       *string `json:"props,omitempty"`
	Palette     *string `json:"palette,omitempty"`
	Style       *string `json:"style,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`
}

// LocationUpsert mirrors CharacterUpsert for locations and zones.
type LocationUpsert struct {
	ID            string       `json:"id,omitempty"`
	Name          *string      `json:"name,omitempty"`
	Description   *string      `json:"description,omitempty"`
	Prompt        *string      `json:"prompt,omitempty"`
	ZonesMode     string       `json:"zonesMode,omitempty" validate:"omitempty,oneof=merge replace"`
	Zones         []ZoneUpsert `json:"zones,omitempty"`
	DeleteZoneIDs []string     `json:"deleteZoneIds,omitempty"`
}

// ZoneUpsert partially updates or appends one location zone.
type ZoneUpsert struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Lighting    *string `json:"lighting,omitempty"`
	TimeOfDay   *string `json:"timeOfDay,omitempty"`
	Weather     *string `json:"weather,omitempty"`
	Mood        *string `json:"mood,omitempty"`
	KeyProps    *string `json:"keyProps,omitempty"`
	Palette     *string `json:"palette,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`
}

// SceneKey identifies a scene for deletion.
type SceneKey struct {
	EpisodeID int `json:"episodeId"`
	SceneID   int `json:"sceneId"`
}

// ShotKey identifies a shot for deletion.
type ShotKey struct {
	EpisodeID int `json:"episodeId"`
	ShotID    int `json:"shotId"`
}

// DeletionManifest names the entities a delta removes. Episode deletion
// cascades to that episode's scenes and shots.
type DeletionManifest struct {
	EpisodeIDs   []int      `json:"episodeIds,omitempty"`
	Scenes       []SceneKey `json:"scenes,omitempty"`
	Shots        []ShotKey  `json:"shots,omitempty"`
	CharacterIDs []string   `json:"characterIds,omitempty"`
	LocationIDs  []string   `json:"locationIds,omitempty"`
}

// Empty reports whether the manifest deletes nothing.
func (m *DeletionManifest) Empty() bool {
	return len(m.EpisodeIDs) == 0 && len(m.Scenes) == 0 && len(m.Shots) == 0 &&
		len(m.CharacterIDs) == 0 && len(m.LocationIDs) == 0
}

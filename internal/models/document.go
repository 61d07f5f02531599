package models

// Wire-format types for the assembled project document. This is the shape
// clients exchange on full fetch, full replacement, conflict responses and
// snapshot restore. The decomposed storage rows live in project.go.

// ProjectDocument is the complete logical document for one owner.
type ProjectDocument struct {
	Meta         ProjectMetaDoc `json:"meta"`
	Episodes     []EpisodeDoc   `json:"episodes"`
	Characters   []CharacterDoc `json:"characters"`
	Locations    []LocationDoc  `json:"locations"`
	DesignAssets []DesignAsset  `json:"designAssets"`
}

// Version reports the document's externally visible version, which is
// always the meta record's stamp.
func (d *ProjectDocument) Version() uint64 {
	return d.Meta.Version
}

// ProjectMetaDoc is the singleton project-level record.
type ProjectMetaDoc struct {
	Title       string         `json:"title"`
	FileName    string         `json:"fileName,omitempty"`
	SourceText  string         `json:"sourceText,omitempty"`
	VisualGuide string         `json:"visualGuide,omitempty"`
	AudioGuide  string         `json:"audioGuide,omitempty"`
	Stats       UsageStats     `json:"stats"`
	Context     ProjectContext `json:"context"`
	Version     uint64         `json:"version"`
}

// UsageStats accumulates generation counters at project or episode scope.
type UsageStats struct {
	PromptTokens     uint64 `json:"promptTokens"`
	CompletionTokens uint64 `json:"completionTokens"`
	TotalTokens      uint64 `json:"totalTokens"`
	Generations      uint64 `json:"generations"`
}

// ProjectContext holds derived summaries used to ground generation prompts.
// Merged one level deep by meta patches.
type ProjectContext struct {
	ProjectSummary    string            `json:"projectSummary,omitempty"`
	EpisodeSummaries  map[string]string `json:"episodeSummaries,omitempty"`
	CharacterOverview []string          `json:"characterOverview,omitempty"`
	LocationOverview  []string          `json:"locationOverview,omitempty"`
}

// EpisodeDoc is one episode with its repeatable children.
type EpisodeDoc struct {
	ID      int        `json:"id"`
	Title   string     `json:"title"`
	Content string     `json:"content,omitempty"`
	Status  string     `json:"status,omitempty"`
	Error   string     `json:"error,omitempty"`
	Usage   UsageStats `json:"usage"`
	Scenes  []SceneDoc `json:"scenes"`
	Shots   []ShotDoc  `json:"shots"`
	Version uint64     `json:"version,omitempty"`
}

// SceneDoc is a scene keyed by (episode id, scene id).
type SceneDoc struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Version uint64 `json:"version,omitempty"`
}

// ShotDoc is a storyboard shot keyed by (episode id, shot id).
// Duration, shot type, movement, description and prompt are required.
type ShotDoc struct {
	ID          int     `json:"id"`
	Duration    float64 `json:"duration" validate:"gt=0"`
	ShotType    string  `json:"shotType" validate:"required"`
	Movement    string  `json:"movement" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Dialogue    string  `json:"dialogue,omitempty"`
	Prompt      string  `json:"prompt" validate:"required"`
	Lighting    string  `json:"lighting,omitempty"`
	AudioNotes  string  `json:"audioNotes,omitempty"`
	Transition  string  `json:"transition,omitempty"`
	Version     uint64  `json:"version,omitempty"`
}

// CharacterDoc is a character with its repeatable form list.
type CharacterDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required"`
	Role        string          `json:"role,omitempty"`
	Description string          `json:"description,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Forms       []CharacterForm `json:"forms"`
	Version     uint64          `json:"version,omitempty"`
}

// CharacterForm is one visual variant of a character.
type CharacterForm struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Age         string `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Build       string `json:"build,omitempty"`
	Height      string `json:"height,omitempty"`
	SkinTone    string `json:"skinTone,omitempty"`
	HairStyle   string `json:"hairStyle,omitempty"`
	HairColor   string `json:"hairColor,omitempty"`
	EyeColor    string `json:"eyeColor,omitempty"`
	Expression  string `json:"expression,omitempty"`
	Pose        string `json:"pose,omitempty"`
	Outfit      string `json:"outfit,omitempty"`
	Footwear    string `json:"footwear,omitempty"`
	Accessories string `json:"accessories,omitempty"`
	Makeup      string `json:"makeup,omitempty"`
	Props       string `json:"props,omitempty"`
	Palette     string `json:"palette,omitempty"`
	Style       string `json:"style,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// LocationDoc is a location with its repeatable zone list.
type LocationDoc struct {
	ID          string         `json:"id"`
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	Zones       []LocationZone `json:"zones"`
	Version     uint64         `json:"version,omitempty"`
}

// LocationZone is one area inside a location.
type LocationZone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	TimeOfDay   string `json:"timeOfDay,omitempty"`
	Weather     string `json:"weather,omitempty"`
	Mood        string `json:"mood,omitempty"`
	KeyProps    string `json:"keyProps,omitempty"`
	Palette     string `json:"palette,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// Design asset kinds.
const (
	AssetKindCharacter = "character"
	AssetKindLocation  = "location"
)

// DesignAsset is a generated reference image descriptor. OwnerID/RefID
// optionally bind it to a character form or location zone; the label mirrors
// the current names of both and is refreshed on rename, and the asset is
// pruned when the referenced form/zone is deleted.
type DesignAsset struct {
	ID       string `json:"id"`
	Kind     string `json:"kind" validate:"omitempty,oneof=character location"`
	Label    string `json:"label,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	OwnerID  string `json:"ownerId,omitempty"`
	RefID    string `json:"refId,omitempty"`
}

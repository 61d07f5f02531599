package validation

import (
	"fmt"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDocument checks a full project document against the structural
// rules enforced on full replacement and snapshot restore: scalar
// constraints (via struct tags) plus id uniqueness within each collection
// scope. The returned error is always a *types.ValidationError carrying the
// failing field path.
func ValidateDocument(doc *models.ProjectDocument) error {
	if doc == nil {
		return types.NewValidationError("project", "document is required")
	}

	episodeIDs := make(map[int]bool, len(doc.Episodes))
	for i, e := range doc.Episodes {
		path := fmt.Sprintf("episodes[%d]", i)
		if e.ID <= 0 {
			return types.NewValidationError(path+".id", "episode id must be positive")
		}
		if episodeIDs[e.ID] {
			return types.NewValidationError(path+".id", "duplicate episode id %d", e.ID)
		}
		episodeIDs[e.ID] = true

		sceneIDs := make(map[int]bool, len(e.Scenes))
		for j, s := range e.Scenes {
			spath := fmt.Sprintf("%s.scenes[%d]", path, j)
			if s.ID <= 0 {
				return types.NewValidationError(spath+".id", "scene id must be positive")
			}
			if sceneIDs[s.ID] {
				return types.NewValidationError(spath+".id", "duplicate scene id %d in episode %d", s.ID, e.ID)
			}
			sceneIDs[s.ID] = true
		}

		shotIDs := make(map[int]bool, len(e.Shots))
		for j, s := range e.Shots {
			spath := fmt.Sprintf("%s.shots[%d]", path, j)
			if s.ID <= 0 {
				return types.NewValidationError(spath+".id", "shot id must be positive")
			}
			if shotIDs[s.ID] {
				return types.NewValidationError(spath+".id", "duplicate shot id %d in episode %d", s.ID, e.ID)
			}
			shotIDs[s.ID] = true
			if err := checkStruct(spath, s); err != nil {
				return err
			}
		}
	}

	characterIDs := make(map[string]bool, len(doc.Characters))
	for i, c := range doc.Characters {
		path := fmt.Sprintf("characters[%d]", i)
		if c.ID == "" {
			return types.NewValidationError(path+".id", "character id is required")
		}
		if characterIDs[c.ID] {
			return types.NewValidationError(path+".id", "duplicate character id %q", c.ID)
		}
		characterIDs[c.ID] = true
		if err := checkStruct(path, c); err != nil {
			return err
		}
		formIDs := make(map[string]bool, len(c.Forms))
		for j, f := range c.Forms {
			fpath := fmt.Sprintf("%s.forms[%d]", path, j)
			if f.ID == "" {
				return types.NewValidationError(fpath+".id", "form id is required")
			}
			if formIDs[f.ID] {
				return types.NewValidationError(fpath+".id", "duplicate form id %q in character %q", f.ID, c.ID)
			}
			formIDs[f.ID] = true
		}
	}

	locationIDs := make(map[string]bool, len(doc.Locations))
	for i, l := range doc.Locations {
		path := fmt.Sprintf("locations[%d]", i)
		if l.ID == "" {
			return types.NewValidationError(path+".id", "location id is required")
		}
		if locationIDs[l.ID] {
			return types.NewValidationError(path+".id", "duplicate location id %q", l.ID)
		}
		locationIDs[l.ID] = true
		if err := checkStruct(path, l); err != nil {
			return err
		}
		zoneIDs := make(map[string]bool, len(l.Zones))
		for j, z := range l.Zones {
			zpath := fmt.Sprintf("%s.zones[%d]", path, j)
			if z.ID == "" {
				return types.NewValidationError(zpath+".id", "zone id is required")
			}
			if zoneIDs[z.ID] {
				return types.NewValidationError(zpath+".id", "duplicate zone id %q in location %q", z.ID, l.ID)
			}
			zoneIDs[z.ID] = true
		}
	}

	assetIDs := make(map[string]bool, len(doc.DesignAssets))
	for i, a := range doc.DesignAssets {
		path := fmt.Sprintf("designAssets[%d]", i)
		if a.ID == "" {
			return types.NewValidationError(path+".id", "asset id is required")
		}
		if assetIDs[a.ID] {
			return types.NewValidationError(path+".id", "duplicate asset id %q", a.ID)
		}
		assetIDs[a.ID] = true
		if err := checkStruct(path, a); err != nil {
			return err
		}
		if a.RefID != "" && a.OwnerID == "" {
			return types.NewValidationError(path+".ownerId", "asset with a nested ref requires an owner id")
		}
	}

	return nil
}

// ValidateDelta checks the structural rules a partial change set must obey
// before any of it is applied.
func ValidateDelta(delta *models.ProjectDelta) error {
	if delta == nil {
		return types.NewValidationError("delta", "delta is required")
	}
	if delta.Empty() {
		return types.NewValidationError("delta", "delta carries no change")
	}

	for i, e := range delta.Episodes {
		if e.ID <= 0 {
			return types.NewValidationError(fmt.Sprintf("episodes[%d].id", i), "episode id must be positive")
		}
	}
	for i, s := range delta.Scenes {
		if s.EpisodeID <= 0 || s.ID <= 0 {
			return types.NewValidationError(fmt.Sprintf("scenes[%d]", i), "scene upsert requires positive episode and scene ids")
		}
	}
	for i, s := range delta.Shots {
		if s.EpisodeID <= 0 || s.ID <= 0 {
			return types.NewValidationError(fmt.Sprintf("shots[%d]", i), "shot upsert requires positive episode and shot ids")
		}
		if s.Duration != nil && *s.Duration <= 0 {
			return types.NewValidationError(fmt.Sprintf("shots[%d].duration", i), "duration must be positive")
		}
	}
	for i, c := range delta.Characters {
		path := fmt.Sprintf("characters[%d]", i)
		if c.ID == "" && (c.Name == nil || *c.Name == "") {
			return types.NewValidationError(path, "character upsert requires an id or a name")
		}
		if err := checkStruct(path, c); err != nil {
			return err
		}
	}
	for i, l := range delta.Locations {
		path := fmt.Sprintf("locations[%d]", i)
		if l.ID == "" && (l.Name == nil || *l.Name == "") {
			return types.NewValidationError(path, "location upsert requires an id or a name")
		}
		if err := checkStruct(path, l); err != nil {
			return err
		}
	}
	return nil
}

// checkStruct runs the tag-based validator and translates its first failure
// into a ValidationError anchored at the given path.
func checkStruct(path string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errorsAs(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewValidationError(path, "%v", err)
	}
	fe := fieldErrs[0]
	return types.NewValidationError(path+"."+lowerFirst(fe.Field()), "failed %q constraint", fe.Tag())
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

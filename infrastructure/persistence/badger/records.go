package badger

import (
	"mirror-backend/application/ports"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	pkgerrors "mirror-backend/pkg/errors"
)

// recordFromReflection maps a domain reflection to its persistence shape
func recordFromReflection(r *entities.Reflection) ports.ReflectionRecord {
	rec := ports.ReflectionRecord{
		ID:        r.ID().String(),
		Content:   r.Content().Text(),
		Layer:     r.Layer().String(),
		Modality:  r.Modality().String(),
		Tags:      r.GetTags(),
		IsPublic:  r.IsPublic(),
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
	}
	if !r.ThreadID().IsZero() {
		rec.ThreadID = r.ThreadID().String()
	}
	if !r.AxisID().IsZero() {
		rec.AxisID = r.AxisID().String()
	}
	return rec
}

// reflectionFromRecord rebuilds a domain reflection from its persistence shape
func reflectionFromRecord(rec ports.ReflectionRecord) (*entities.Reflection, error) {
	id, err := valueobjects.NewReflectionIDFromString(rec.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid reflection id")
	}

	layer, err := valueobjects.NewLayer(rec.Layer)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid layer")
	}

	modality, err := valueobjects.NewModality(rec.Modality)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid modality")
	}

	var threadID valueobjects.ThreadID
	if rec.ThreadID != "" {
		if threadID, err = valueobjects.NewThreadIDFromString(rec.ThreadID); err != nil {
			return nil, pkgerrors.Wrap(err, "invalid thread reference")
		}
	}

	var axisID valueobjects.AxisID
	if rec.AxisID != "" {
		if axisID, err = valueobjects.NewAxisIDFromString(rec.AxisID); err != nil {
			return nil, pkgerrors.Wrap(err, "invalid axis reference")
		}
	}

	return entities.ReconstructReflection(
		id,
		valueobjects.ReconstructReflectionContent(rec.Content),
		layer,
		modality,
		threadID,
		axisID,
		rec.Tags,
		rec.IsPublic,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
}

// recordFromThread maps a domain thread to its persistence shape
func recordFromThread(t *entities.Thread) ports.ThreadRecord {
	ids := t.ReflectionIDs()
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return ports.ThreadRecord{
		ID:            t.ID().String(),
		Title:         t.Title(),
		ReflectionIDs: strs,
		CreatedAt:     t.CreatedAt(),
		UpdatedAt:     t.UpdatedAt(),
	}
}

// threadFromRecord rebuilds a domain thread from its persistence shape
func threadFromRecord(rec ports.ThreadRecord) (*entities.Thread, error) {
	id, err := valueobjects.NewThreadIDFromString(rec.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid thread id")
	}

	reflectionIDs := make([]valueobjects.ReflectionID, 0, len(rec.ReflectionIDs))
	for _, s := range rec.ReflectionIDs {
		rid, err := valueobjects.NewReflectionIDFromString(s)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "invalid reflection reference")
		}
		reflectionIDs = append(reflectionIDs, rid)
	}

	return entities.ReconstructThread(id, rec.Title, reflectionIDs, rec.CreatedAt, rec.UpdatedAt)
}

// recordFromAxis maps a domain identity axis to its persistence shape
func recordFromAxis(a *entities.IdentityAxis) ports.AxisRecord {
	return ports.AxisRecord{
		ID:        a.ID().String(),
		Name:      a.Name(),
		Color:     a.Color(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
	}
}

// axisFromRecord rebuilds a domain identity axis from its persistence shape
func axisFromRecord(rec ports.AxisRecord) (*entities.IdentityAxis, error) {
	id, err := valueobjects.NewAxisIDFromString(rec.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid axis id")
	}
	return entities.ReconstructIdentityAxis(id, rec.Name, rec.Color, rec.CreatedAt, rec.UpdatedAt)
}

// recordFromSettings maps the settings singleton to its persistence shape
func recordFromSettings(s *entities.Settings) ports.SettingsRecord {
	return ports.SettingsRecord{
		Theme:           string(s.Theme()),
		ReducedMotion:   s.ReducedMotion(),
		HighContrast:    s.HighContrast(),
		DefaultLayer:    s.DefaultLayer().String(),
		DefaultModality: s.DefaultModality().String(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

// settingsFromRecord rebuilds the settings singleton; unknown stored values
// fall back to defaults rather than failing the load
func settingsFromRecord(rec ports.SettingsRecord) *entities.Settings {
	return entities.ReconstructSettings(
		entities.Theme(rec.Theme),
		rec.ReducedMotion,
		rec.HighContrast,
		valueobjects.Layer(rec.DefaultLayer),
		valueobjects.Modality(rec.DefaultModality),
		rec.UpdatedAt,
	)
}

package handlers

import (
	"time"

	"mirror-backend/application/state"
	"mirror-backend/domain/core/entities"
)

// ReflectionResponse is the wire shape of a reflection
type ReflectionResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Layer     string    `json:"layer"`
	Modality  string    `json:"modality"`
	ThreadID  string    `json:"threadId,omitempty"`
	AxisID    string    `json:"axisId,omitempty"`
	Tags      []string  `json:"tags"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toReflectionResponse(r *entities.Reflection) ReflectionResponse {
	resp := ReflectionResponse{
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
		resp.ThreadID = r.ThreadID().String()
	}
	if !r.AxisID().IsZero() {
		resp.AxisID = r.AxisID().String()
	}
	return resp
}

func toReflectionResponses(reflections []*entities.Reflection) []ReflectionResponse {
	out := make([]ReflectionResponse, 0, len(reflections))
	for _, r := range reflections {
		out = append(out, toReflectionResponse(r))
	}
	return out
}

// ThreadResponse is the wire shape of a thread
type ThreadResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ReflectionIDs []string  `json:"reflectionIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toThreadResponse(t *entities.Thread) ThreadResponse {
	ids := t.ReflectionIDs()
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return ThreadResponse{
		ID:            t.ID().String(),
		Title:         t.Title(),
		ReflectionIDs: strs,
		CreatedAt:     t.CreatedAt(),
		UpdatedAt:     t.UpdatedAt(),
	}
}

// AxisResponse is the wire shape of an identity axis
type AxisResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAxisResponse(a *entities.IdentityAxis) AxisResponse {
	return AxisResponse{
		ID:        a.ID().String(),
		Name:      a.Name(),
		Color:     a.Color(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
	}
}

// SettingsResponse is the wire shape of the settings singleton
type SettingsResponse struct {
	Theme           string    `json:"theme"`
	ReducedMotion   bool      `json:"reducedMotion"`
	HighContrast    bool      `json:"highContrast"`
	DefaultLayer    string    `json:"defaultLayer"`
	DefaultModality string    `json:"defaultModality"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toSettingsResponse(s *entities.Settings) SettingsResponse {
	return SettingsResponse{
		Theme:           string(s.Theme()),
		ReducedMotion:   s.ReducedMotion(),
		HighContrast:    s.HighContrast(),
		DefaultLayer:    s.DefaultLayer().String(),
		DefaultModality: s.DefaultModality().String(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

// StateResponse is the wire shape of a full state snapshot
type StateResponse struct {
	Reflections []ReflectionResponse `json:"reflections"`
	Threads     []ThreadResponse     `json:"threads"`
	Axes        []AxisResponse       `json:"identityAxes"`
	Settings    SettingsResponse     `json:"settings"`

	CurrentLayer  string `json:"currentLayer"`
	CurrentThread string `json:"currentThread,omitempty"`
	CurrentAxis   string `json:"currentAxis,omitempty"`
	CrisisMode    bool   `json:"crisisMode"`

	Health state.Health `json:"health"`
}

func toStateResponse(snap state.Snapshot) StateResponse {
	resp := StateResponse{
		Reflections:  toReflectionResponses(snap.Reflections),
		Threads:      make([]ThreadResponse, 0, len(snap.Threads)),
		Axes:         make([]AxisResponse, 0, len(snap.Axes)),
		Settings:     toSettingsResponse(snap.Settings),
		CurrentLayer: snap.CurrentLayer.String(),
		CrisisMode:   snap.CrisisMode,
		Health:       snap.Health,
	}
	for _, t := range snap.Threads {
		resp.Threads = append(resp.Threads, toThreadResponse(t))
	}
	for _, a := range snap.Axes {
		resp.Axes = append(resp.Axes, toAxisResponse(a))
	}
	if !snap.CurrentThread.IsZero() {
		resp.CurrentThread = snap.CurrentThread.String()
	}
	if !snap.CurrentAxis.IsZero() {
		resp.CurrentAxis = snap.CurrentAxis.String()
	}
	return resp
}

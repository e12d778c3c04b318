package events

import (
	"time"

	"mirror-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// Reflection events

// ReflectionCreated is raised when a new reflection is created
type ReflectionCreated struct {
	BaseEvent
	ReflectionID valueobjects.ReflectionID `json:"reflection_id"`
	Layer        valueobjects.Layer        `json:"layer"`
	Modality     valueobjects.Modality     `json:"modality"`
}

// NewReflectionCreated creates a ReflectionCreated event
func NewReflectionCreated(id valueobjects.ReflectionID, layer valueobjects.Layer, modality valueobjects.Modality, timestamp time.Time) ReflectionCreated {
	return ReflectionCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "reflection.created",
			Timestamp:   timestamp,
		},
		ReflectionID: id,
		Layer:        layer,
		Modality:     modality,
	}
}

// ReflectionUpdated is raised when reflection fields change
type ReflectionUpdated struct {
	BaseEvent
	ReflectionID valueobjects.ReflectionID `json:"reflection_id"`
}

// NewReflectionUpdated creates a ReflectionUpdated event
func NewReflectionUpdated(id valueobjects.ReflectionID, timestamp time.Time) ReflectionUpdated {
	return ReflectionUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "reflection.updated",
			Timestamp:   timestamp,
		},
		ReflectionID: id,
	}
}

// ReflectionDeleted is raised when a reflection is deleted.
// Deletion does not cascade; threads referencing the id keep a dangling entry.
type ReflectionDeleted struct {
	BaseEvent
	ReflectionID valueobjects.ReflectionID `json:"reflection_id"`
}

// NewReflectionDeleted creates a ReflectionDeleted event
func NewReflectionDeleted(id valueobjects.ReflectionID, timestamp time.Time) ReflectionDeleted {
	return ReflectionDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "reflection.deleted",
			Timestamp:   timestamp,
		},
		ReflectionID: id,
	}
}

// Thread events

// ThreadCreated is raised when a new thread is created
type ThreadCreated struct {
	BaseEvent
	ThreadID valueobjects.ThreadID `json:"thread_id"`
	Title    string                `json:"title"`
}

// NewThreadCreated creates a ThreadCreated event
func NewThreadCreated(id valueobjects.ThreadID, title string, timestamp time.Time) ThreadCreated {
	return ThreadCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "thread.created",
			Timestamp:   timestamp,
		},
		ThreadID: id,
		Title:    title,
	}
}

// ThreadUpdated is raised when thread fields change
type ThreadUpdated struct {
	BaseEvent
	ThreadID valueobjects.ThreadID `json:"thread_id"`
}

// NewThreadUpdated creates a ThreadUpdated event
func NewThreadUpdated(id valueobjects.ThreadID, timestamp time.Time) ThreadUpdated {
	return ThreadUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "thread.updated",
			Timestamp:   timestamp,
		},
		ThreadID: id,
	}
}

// ThreadDeleted is raised when a thread is deleted
type ThreadDeleted struct {
	BaseEvent
	ThreadID valueobjects.ThreadID `json:"thread_id"`
}

// NewThreadDeleted creates a ThreadDeleted event
func NewThreadDeleted(id valueobjects.ThreadID, timestamp time.Time) ThreadDeleted {
	return ThreadDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "thread.deleted",
			Timestamp:   timestamp,
		},
		ThreadID: id,
	}
}

// ReflectionAddedToThread is raised when a reflection joins a thread.
// This is the two-entity mutation: both the thread list and the reflection's
// thread reference changed under one commit.
type ReflectionAddedToThread struct {
	BaseEvent
	ThreadID     valueobjects.ThreadID     `json:"thread_id"`
	ReflectionID valueobjects.ReflectionID `json:"reflection_id"`
}

// NewReflectionAddedToThread creates a ReflectionAddedToThread event
func NewReflectionAddedToThread(threadID valueobjects.ThreadID, reflectionID valueobjects.ReflectionID, timestamp time.Time) ReflectionAddedToThread {
	return ReflectionAddedToThread{
		BaseEvent: BaseEvent{
			AggregateID: threadID.String(),
			EventType:   "thread.reflection_added",
			Timestamp:   timestamp,
		},
		ThreadID:     threadID,
		ReflectionID: reflectionID,
	}
}

// Identity axis events

// AxisCreated is raised when a new identity axis is created
type AxisCreated struct {
	BaseEvent
	AxisID valueobjects.AxisID `json:"axis_id"`
	Name   string              `json:"name"`
}

// NewAxisCreated creates an AxisCreated event
func NewAxisCreated(id valueobjects.AxisID, name string, timestamp time.Time) AxisCreated {
	return AxisCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "axis.created",
			Timestamp:   timestamp,
		},
		AxisID: id,
		Name:   name,
	}
}

// AxisUpdated is raised when axis fields change
type AxisUpdated struct {
	BaseEvent
	AxisID valueobjects.AxisID `json:"axis_id"`
}

// NewAxisUpdated creates an AxisUpdated event
func NewAxisUpdated(id valueobjects.AxisID, timestamp time.Time) AxisUpdated {
	return AxisUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "axis.updated",
			Timestamp:   timestamp,
		},
		AxisID: id,
	}
}

// AxisDeleted is raised when an identity axis is deleted
type AxisDeleted struct {
	BaseEvent
	AxisID valueobjects.AxisID `json:"axis_id"`
}

// NewAxisDeleted creates an AxisDeleted event
func NewAxisDeleted(id valueobjects.AxisID, timestamp time.Time) AxisDeleted {
	return AxisDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "axis.deleted",
			Timestamp:   timestamp,
		},
		AxisID: id,
	}
}

// Settings and data-management events

// SettingsUpdated is raised when the settings singleton changes
type SettingsUpdated struct {
	BaseEvent
}

// NewSettingsUpdated creates a SettingsUpdated event
func NewSettingsUpdated(timestamp time.Time) SettingsUpdated {
	return SettingsUpdated{
		BaseEvent: BaseEvent{
			AggregateID: "settings",
			EventType:   "settings.updated",
			Timestamp:   timestamp,
		},
	}
}

// CrisisDetected is raised when the asynchronous crisis scan flags a
// newly created reflection
type CrisisDetected struct {
	BaseEvent
	ReflectionID valueobjects.ReflectionID `json:"reflection_id"`
	MatchedTerm  string                    `json:"matched_term"`
}

// NewCrisisDetected creates a CrisisDetected event
func NewCrisisDetected(id valueobjects.ReflectionID, matchedTerm string, timestamp time.Time) CrisisDetected {
	return CrisisDetected{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "crisis.detected",
			Timestamp:   timestamp,
		},
		ReflectionID: id,
		MatchedTerm:  matchedTerm,
	}
}

// DataImported is raised after importAll replaced every collection
type DataImported struct {
	BaseEvent
	ReflectionCount int `json:"reflection_count"`
	ThreadCount     int `json:"thread_count"`
	AxisCount       int `json:"axis_count"`
}

// NewDataImported creates a DataImported event
func NewDataImported(reflections, threads, axes int, timestamp time.Time) DataImported {
	return DataImported{
		BaseEvent: BaseEvent{
			AggregateID: "store",
			EventType:   "data.imported",
			Timestamp:   timestamp,
		},
		ReflectionCount: reflections,
		ThreadCount:     threads,
		AxisCount:       axes,
	}
}

// DataCleared is raised after clearAll emptied every collection
type DataCleared struct {
	BaseEvent
}

// NewDataCleared creates a DataCleared event
func NewDataCleared(timestamp time.Time) DataCleared {
	return DataCleared{
		BaseEvent: BaseEvent{
			AggregateID: "store",
			EventType:   "data.cleared",
			Timestamp:   timestamp,
		},
	}
}

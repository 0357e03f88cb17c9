package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/models"
)

// Emitter is the fire-and-forget notification sink. The engine never depends
// on delivery; a failing sink must not fail the call that emitted.
type Emitter interface {
	Emit(name string, fields map[string]interface{})
}

// LogEmitter publishes events as structured log lines.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates an emitter writing to the given logger
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger.With().Str("module", "events").Logger()}
}

// Emit publishes one event
func (e *LogEmitter) Emit(name string, fields map[string]interface{}) {
	e.logger.Info().
		Str("event_id", uuid.New().String()).
		Str("event", name).
		Fields(fields).
		Msg("event emitted")
}

// CaptureEmitter records events for assertions in tests.
type CaptureEmitter struct {
	Events []models.Event
}

// Emit records one event
func (e *CaptureEmitter) Emit(name string, fields map[string]interface{}) {
	e.Events = append(e.Events, models.Event{
		ID:        uuid.New().String(),
		Name:      name,
		Timestamp: time.Now(),
		Fields:    fields,
	})
}

// Named returns the captured events with the given name
func (e *CaptureEmitter) Named(name string) []models.Event {
	var out []models.Event
	for _, ev := range e.Events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

package customfield

import (
	"context"

	"github.com/rs/zerolog"
)

// ShadowStore keeps the last known remote administrator username in a
// service custom field.
type ShadowStore struct {
	fields FieldStore
	name   string
	logger zerolog.Logger
}

func NewShadowStore(fields FieldStore, name string, logger zerolog.Logger) *ShadowStore {
	return &ShadowStore{
		fields: fields,
		name:   name,
		logger: logger.With().Str("component", "shadow-store").Str("field", name).Logger(),
	}
}

// FieldName returns the custom field name the store writes to.
func (s *ShadowStore) FieldName() string {
	return s.name
}

// Get reads the shadow username from the custom field snapshot supplied with
// the operation.
func (s *ShadowStore) Get(snapshot map[string]string) string {
	return snapshot[s.name]
}

// Set writes value for the service. Failures are logged and swallowed: the
// remote change this records has already happened.
func (s *ShadowStore) Set(ctx context.Context, serviceID int64, value string) {
	log := s.logger.With().Int64("service_id", serviceID).Logger()

	fieldID, ok, err := s.fields.FieldID(ctx, s.name, ScopeService)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve custom field")
		return
	}
	if !ok {
		log.Warn().Msg("custom field not defined, skipping update")
		return
	}

	valueID, exists, err := s.fields.ValueID(ctx, fieldID, serviceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read custom field value")
		return
	}

	if exists {
		err = s.fields.UpdateValue(ctx, valueID, value)
	} else {
		err = s.fields.InsertValue(ctx, fieldID, serviceID, value)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to update custom field")
		return
	}

	log.Debug().Bool("cleared", value == "").Msg("custom field updated")
}

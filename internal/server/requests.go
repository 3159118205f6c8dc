package server

import "github.com/oszuidwest/diario-bordo/internal/types"

// Request types with validation tags.
// These types define the expected input for REST endpoints and WebSocket
// commands and use go-playground/validator struct tags.

// --- Diary events ---

// UpdateTranscricaoRequest is the request body for
// PATCH /api/diario-evento/{id}/transcricao. A key sent as null clears
// that transcription.
type UpdateTranscricaoRequest struct {
	Detalhe    types.OptionalString `json:"detalhe" validate:"omitempty,max=20000"`
	Observacao types.OptionalString `json:"observacao" validate:"omitempty,max=20000"`
}

// --- Transcription ---

// TranscribeFormRequest holds the form fields of POST /api/transcribe-audio.
type TranscribeFormRequest struct {
	EventoID string `json:"evento_id" validate:"omitempty,uuid"`
	Tipo     string `json:"tipo" validate:"omitempty,max=32"`
	Language string `json:"language" validate:"omitempty,len=2"`
}

// --- Notification settings ---

// WebhookUpdateRequest is the request body for PUT /api/notifications/webhook.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,max=2048,url"`
}

// --- S3 test ---

// S3TestRequest is the request body for POST /api/storage/test-s3.
// An empty body tests the configured mirror.
type S3TestRequest struct {
	Endpoint  string `json:"s3_endpoint" validate:"omitempty,max=2048"`
	Bucket    string `json:"s3_bucket" validate:"required_with=AccessKey SecretKey,max=63"`
	AccessKey string `json:"s3_access_key_id" validate:"required_with=Bucket,max=128"`
	SecretKey string `json:"s3_secret_access_key" validate:"required_with=Bucket,max=256"`
	Prefix    string `json:"s3_prefix" validate:"omitempty,max=256"`
}

// --- Meter ---

// MeterConfigRequest is the request body for the meter/config command.
// Changes apply to the next capture.
type MeterConfigRequest struct {
	Bars          *int     `json:"bars" validate:"omitempty,gte=1,lte=256"`
	TickMs        *int     `json:"tick_ms" validate:"omitempty,gte=10,lte=1000"`
	Alpha         *float64 `json:"alpha" validate:"omitempty,gt=0,lte=1"`
	HoldMs        *int64   `json:"hold_ms" validate:"omitempty,gte=0,lte=10000"`
	Decay         *float64 `json:"decay" validate:"omitempty,gt=0,lt=1"`
	ClipThreshold *float64 `json:"clip_threshold" validate:"omitempty,gt=0,lte=1"`
}

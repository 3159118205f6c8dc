package types

// Envelope wraps every REST response as {data, error}.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody is the error member of an Envelope.
type ErrorBody struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	Version         string `json:"version"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
	LatestVersion   string `json:"latest_version,omitempty"`
}

// ConnectionResponse is returned by the database connection test.
type ConnectionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Database string `json:"database,omitempty"`
}

// TranscriptionResponse is returned by the transcription endpoint.
type TranscriptionResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// DeleteResponse is the data of a successful event deletion.
type DeleteResponse struct {
	Deleted  bool   `json:"deleted"`
	EventoID string `json:"evento_id"`
}

// BatchResult reports the outcome of a transcription backfill.
type BatchResult struct {
	Processed int                     `json:"processed"`
	Results   map[string]BatchOutcome `json:"results"`
}

// BatchOutcome is the per-event result of a backfill.
type BatchOutcome struct {
	Updated map[string]string `json:"updated,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// WSCommandResult is the standard response for meter WebSocket commands.
type WSCommandResult struct {
	Type    string           `json:"type"`            // "<command>_result"
	Success bool             `json:"success"`         // true if command succeeded
	Error   *ValidationError `json:"error,omitempty"` // Validation errors if failed
	Data    any              `json:"data,omitempty"`  // Optional response data
}

package http

import (
	"encoding/json"
	"net/http"

	apperrors "navette/pkg/errors"
)

// Envelope is the uniform response body: every endpoint answers with
// {success, data|error}.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Count   *int           `json:"count,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Writer renders envelopes. ExposeInternal controls whether the raw
// message of an internal error is written to the wire; production
// deployments keep it off and rely on logs.
type Writer struct {
	ExposeInternal bool
}

func NewWriter(exposeInternal bool) *Writer {
	return &Writer{ExposeInternal: exposeInternal}
}

// WriteJSON writes a bare JSON body outside the envelope. Health probes
// use it; everything else goes through a Writer.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

func (wr *Writer) write(w http.ResponseWriter, statusCode int, body Envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

func (wr *Writer) Success(w http.ResponseWriter, data any) error {
	return wr.write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func (wr *Writer) Created(w http.ResponseWriter, data any) error {
	return wr.write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func (wr *Writer) List(w http.ResponseWriter, data any, count int) error {
	return wr.write(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

func (wr *Writer) NoContent(w http.ResponseWriter) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (wr *Writer) Error(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	body := Envelope{
		Success: false,
		Error:   appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Code == apperrors.CodeInternal && !wr.ExposeInternal {
		body.Error = "Internal server error"
		body.Details = nil
	}

	return wr.write(w, appErr.StatusCode(), body)
}

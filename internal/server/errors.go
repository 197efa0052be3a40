package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/dashboard"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
)

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error string         `json:"error"`
	Kind  dashboard.Kind `json:"kind"`
	// RawResponse and Detail are set for unparseable reasoning replies only.
	RawResponse string `json:"raw_response,omitempty"`
	Detail      string `json:"detail,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func errorBody(err error) (ErrorBody, int) {
	kind, status := dashboard.Classify(err)
	body := ErrorBody{Error: err.Error(), Kind: kind}
	var malformed *chart.MalformedLLMResponseError
	if errors.As(err, &malformed) {
		body.Error = "error parsing LLM response"
		body.RawResponse = malformed.Raw
		if malformed.Err != nil {
			body.Detail = malformed.Err.Error()
		}
	}
	var fetchErr *sheets.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		body.Detail = fetchErr.Body
	}
	return body, status
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body, status := errorBody(err)
	body.RequestID = RequestIDFrom(r.Context())
	level := s.log.Warn
	if status >= 500 {
		level = s.log.Error
	}
	level("server.request_failed",
		"request_id", body.RequestID,
		"path", r.URL.Path,
		"kind", string(body.Kind),
		"status", status,
		"error", err.Error(),
	)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

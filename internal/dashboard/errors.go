package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/KaramelBytes/sheetcharts/internal/advisor"
	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
)

// ValidationError reports a request the pipeline cannot run on.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Kind names an error class in responses and logs.
type Kind string

const (
	KindValidation = Kind("validation")
	KindFetch      = Kind("fetch")
	KindReasoning  = Kind("reasoning")
	KindMalformed  = Kind("malformed_llm_response")
	KindTimeout    = Kind("timeout")
	KindInternal   = Kind("internal")
)

// Classify maps a pipeline error to its kind and HTTP status. A deadline
// anywhere in the chain wins, since the caller may simply retry.
func Classify(err error) (Kind, int) {
	var (
		valErr    *ValidationError
		insuffErr *chart.InsufficientDataError
		malformed *chart.MalformedLLMResponseError
		reasonErr *advisor.ReasoningServiceError
		fetchErr  *sheets.FetchError
	)
	switch {
	case err == nil:
		return "", http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout, http.StatusGatewayTimeout
	case errors.As(err, &valErr), errors.As(err, &insuffErr), errors.Is(err, chart.ErrMissingInput):
		return KindValidation, http.StatusBadRequest
	case errors.As(err, &malformed):
		return KindMalformed, http.StatusBadGateway
	case errors.As(err, &reasonErr):
		return KindReasoning, http.StatusBadGateway
	case errors.As(err, &fetchErr):
		return KindFetch, http.StatusBadGateway
	}
	return KindInternal, http.StatusInternalServerError
}

package types

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the analysis pipeline. Stages wrap these with
// fmt.Errorf so callers can match with errors.Is.
var (
	ErrMissingCredential       = errors.New("missing API credential")
	ErrTransport               = errors.New("upstream request failed")
	ErrInvalidModelOutput      = errors.New("invalid model output")
	ErrNoRecommendationsParsed = errors.New("no recommendations parsed")
	ErrInvalidSubjectReference = errors.New("invalid subject reference")
)

// TransportError is a non-success response (or timeout) from an upstream service.
// Message is the upstream-provided error message when there is one, otherwise the
// HTTP status text.
type TransportError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Service, e.Message)
}

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// ErrorResponse is the uniform error envelope: the tagged error plus the
// human-readable copy presentation shows for it.
type ErrorResponse struct {
	Error       *domain.PricingError `json:"error"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
}

type errorCopy struct {
	title       string
	description string
}

// copyByType maps every error kind to a title/description pair. Recoverable
// errors get a retry action client-side; the copy tells the shopper what to do.
var copyByType = map[domain.ErrorType]errorCopy{
	domain.ErrPermissionDenied:    {"Location access denied", "Allow location access or enter your pincode manually."},
	domain.ErrPositionUnavailable: {"Could not detect your location", "Enter your pincode manually to continue."},
	domain.ErrTimeout:             {"Request timed out", "Check your connection and try again."},
	domain.ErrInvalidPincode:      {"Invalid pincode", "Enter a valid 6-digit pincode."},
	domain.ErrAPIError:            {"Something went wrong", "Please try again in a moment."},
	domain.ErrDepotNotFound:       {"Not serviceable yet", "We do not deliver to this pincode yet. Try another one."},
	domain.ErrNetworkError:        {"Connection problem", "Check your connection and try again."},
	domain.ErrCacheError:          {"Stored data problem", "Reload to rebuild your session."},
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, pe *domain.PricingError) {
	c := copyByType[pe.Type]
	respondJSON(w, status, ErrorResponse{
		Error:       pe,
		Title:       c.title,
		Description: c.description,
	})
}

// handleEngineError maps the error taxonomy onto HTTP status codes.
func handleEngineError(w http.ResponseWriter, err error) {
	pe := domain.AsPricingError(err)

	status := http.StatusInternalServerError
	switch pe.Type {
	case domain.ErrInvalidPincode:
		status = http.StatusBadRequest
	case domain.ErrDepotNotFound:
		status = http.StatusNotFound
	case domain.ErrPermissionDenied:
		status = http.StatusForbidden
	case domain.ErrPositionUnavailable:
		status = http.StatusServiceUnavailable
	case domain.ErrTimeout:
		status = http.StatusGatewayTimeout
	case domain.ErrNetworkError, domain.ErrAPIError:
		status = http.StatusBadGateway
	case domain.ErrCacheError:
		status = http.StatusInternalServerError
	}

	respondError(w, status, pe)
}

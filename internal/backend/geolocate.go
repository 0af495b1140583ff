package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// Position agent error codes, matching the platform geolocation capability.
const (
	positionCodePermissionDenied    = 1
	positionCodePositionUnavailable = 2
	positionCodeTimeout             = 3
)

// PositionAgent asks the device positioning capability for the current
// coordinates. The agent enforces its own permission and timeout semantics;
// this client only translates its error codes into the engine taxonomy.
type PositionAgent struct {
	baseURL string
	http    *http.Client
}

func NewPositionAgent(baseURL string, timeout time.Duration) *PositionAgent {
	return &PositionAgent{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (a *PositionAgent) CurrentPosition(ctx context.Context) (domain.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/position", nil)
	if err != nil {
		return domain.Coordinates{}, domain.NewError(domain.ErrPositionUnavailable, err.Error())
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Coordinates{}, domain.NewError(domain.ErrTimeout, "position request timed out")
		}
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return domain.Coordinates{}, domain.NewError(domain.ErrTimeout, "position request timed out")
		}
		return domain.Coordinates{}, domain.NewError(domain.ErrPositionUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Coordinates{}, domain.NewError(domain.ErrPositionUnavailable, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		var agentErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &agentErr)
		return domain.Coordinates{}, positionError(agentErr.Code, agentErr.Message)
	}

	var coords domain.Coordinates
	if err := json.Unmarshal(body, &coords); err != nil {
		return domain.Coordinates{}, domain.NewError(domain.ErrPositionUnavailable, "malformed position response")
	}
	return coords, nil
}

func positionError(code int, message string) *domain.PricingError {
	switch code {
	case positionCodePermissionDenied:
		return domain.NewError(domain.ErrPermissionDenied, message)
	case positionCodeTimeout:
		return domain.NewError(domain.ErrTimeout, message)
	default:
		return domain.NewError(domain.ErrPositionUnavailable, message)
	}
}

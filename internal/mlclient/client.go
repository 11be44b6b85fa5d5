package mlclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"hotelbook/internal/config"
	"hotelbook/internal/domain"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

const breakerName = "ml-scorer"

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("ml scorer unavailable")

var (
	_ domain.PersonalizedScorer = (*Client)(nil)
	_ domain.ModelReloader      = (*Client)(nil)
)

// Client calls the external recommendation model over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*models.PersonalizedResponse]
	logger     *zerolog.Logger
}

// recommendationRequest is the body of POST /recommendations.
type recommendationRequest struct {
	UserID           string `json:"user_id"`
	Kind             string `json:"kind"`
	Occasion         string `json:"occasion,omitempty"`
	PartySize        int    `json:"party_size"`
	TimeSlot         string `json:"time_slot,omitempty"`
	NRecommendations int    `json:"n_recommendations"`
	UseCache         bool   `json:"use_cache"`
}

// New builds a client from the recommendations config section.
func New(cfg config.RecommendationsConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.MLTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.MLBaseURL, "/"),
		apiKey:     cfg.MLAPIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Component(logger, "mlclient"),
	}

	metrics.SetBreakerState(breakerName, 0)
	trip := cfg.CircuitBreaker.ConsecutiveFailures
	if trip == 0 {
		trip = 5
	}
	c.cb = gobreaker.NewCircuitBreaker[*models.PersonalizedResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.SetBreakerState(name, stateToFloat(to))
		},
	})
	return c
}

// Enabled reports whether a scorer URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// FetchPersonalized asks the model for recommendations for one user.
func (c *Client) FetchPersonalized(
	ctx context.Context,
	userID string,
	rc models.RecommendationContext,
	useCache bool,
) (*models.PersonalizedResponse, error) {
	body := recommendationRequest{
		UserID:           userID,
		Kind:             rc.Kind,
		Occasion:         rc.Occasion,
		PartySize:        rc.PartySize,
		TimeSlot:         rc.TimeSlot,
		NRecommendations: rc.ResultCount,
		UseCache:         useCache,
	}

	resp, err := c.cb.Execute(func() (*models.PersonalizedResponse, error) {
		var raw wireResponse
		if err := c.doPost(ctx, c.baseURL+"/recommendations", body, &raw); err != nil {
			return nil, err
		}
		return raw.toModel(rc.Kind), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("fetch personalized: %w", err)
	}
	return resp, nil
}

// ReloadModel asks the scorer to reload its trained model.
func (c *Client) ReloadModel(ctx context.Context) error {
	if err := c.doPost(ctx, c.baseURL+"/load_model", struct{}{}, nil); err != nil {
		return fmt.Errorf("reload model: %w", err)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

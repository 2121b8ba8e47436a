package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	gobreaker "github.com/sony/gobreaker/v2"
)

// UserAgent identifies the CLI to the backend
const UserAgent = "SocialHub-CLI/0.1.0"

var httpClient *resty.Client
var breaker *gobreaker.CircuitBreaker[*resty.Response]

// serverStatusError lets 5xx responses count as breaker failures while
// still handing the response back to the caller for error parsing.
type serverStatusError struct {
	status int
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("backend returned %d", e.status)
}

// Init initializes the HTTP client
func Init() {
	httpClient = resty.New()

	baseURL := strings.TrimRight(config.GetString("backend.url"), "/")
	timeout := time.Duration(config.GetInt("backend.timeout")) * time.Second

	httpClient.SetBaseURL(baseURL)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("User-Agent", UserAgent)

	// The anon key identifies the project; it doubles as the bearer token
	// until a user session replaces it.
	if anonKey := config.GetString("backend.anon_key"); anonKey != "" {
		httpClient.SetHeader("apikey", anonKey)
		httpClient.SetHeader("Authorization", "Bearer "+anonKey)
	}

	httpClient.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})

	httpClient.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})

	breaker = newBreaker()
}

func newBreaker() *gobreaker.CircuitBreaker[*resty.Response] {
	minRequests := uint32(config.GetInt("breaker.min_requests"))
	failureRatio := config.GetFloat64("breaker.failure_ratio")
	timeout := time.Duration(config.GetInt("breaker.timeout_seconds")) * time.Second

	return gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// GetClient returns the HTTP client
func GetClient() *resty.Client {
	if httpClient == nil {
		Init()
	}
	return httpClient
}

// Send executes a prepared request through the circuit breaker. Transport
// failures and 5xx responses count against the breaker; while it is open
// requests fail fast with an unavailable error.
func Send(req *resty.Request, method, path string) (*resty.Response, error) {
	GetClient()

	resp, err := breaker.Execute(func() (*resty.Response, error) {
		resp, err := req.Execute(method, path)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, &serverStatusError{status: resp.StatusCode()}
		}
		return resp, nil
	})

	var statusErr *serverStatusError
	if errors.As(err, &statusErr) {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, clierrors.UnavailableError(err)
	}
	return resp, err
}

// BreakerState returns the current circuit breaker state
func BreakerState() gobreaker.State {
	GetClient()
	return breaker.State()
}

// SetAuthToken sets the authorization token
func SetAuthToken(token string) {
	GetClient().SetHeader("Authorization", "Bearer "+token)
}

// ClearAuthToken drops the user session and falls back to the anon key
func ClearAuthToken() {
	c := GetClient()
	if anonKey := config.GetString("backend.anon_key"); anonKey != "" {
		c.SetHeader("Authorization", "Bearer "+anonKey)
		return
	}
	c.Header.Del("Authorization")
}

// HTTPClient exposes the underlying transport for raw streaming requests
func HTTPClient() *http.Client {
	return GetClient().GetClient()
}

// Headers returns a copy of the headers sent with every request
func Headers() http.Header {
	return GetClient().Header.Clone()
}

// BaseURL returns the configured backend URL
func BaseURL() string {
	return GetClient().BaseURL
}

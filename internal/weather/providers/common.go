package providers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
)

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// statusError carries a server-side failure status through the breaker.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.code)
}

// doRequest executes req once through the circuit breaker. Transport errors
// and 5xx responses count as breaker failures; other statuses are returned
// to the caller with the body open. There are no retries.
func doRequest(client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	defaultTimeout = 10 * time.Second

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
)

// OpenWeatherClient fetches current weather from OpenWeatherMap. It does no
// caching and no retries; each call issues exactly one request.
type OpenWeatherClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
}

var _ weather.Fetcher = (*OpenWeatherClient)(nil)

// NewOpenWeatherClient creates a client for baseURL (DefaultBaseURL when
// empty). A nil client gets a 10 second timeout.
func NewOpenWeatherClient(client *http.Client, baseURL, apiKey string) *OpenWeatherClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherClient{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/weather",
		client:   client,
		circuit:  cb,
	}
}

// FetchByCity requests the current weather for a city name.
func (c *OpenWeatherClient) FetchByCity(ctx context.Context, name string) (weather.Record, error) {
	if strings.TrimSpace(name) == "" || !utf8.ValidString(name) {
		return weather.Record{}, weather.NewError(weather.KindInvalidInput, "Invalid city name", nil)
	}

	values := url.Values{}
	values.Set("q", name)
	return c.fetch(ctx, values)
}

// FetchByCoordinates requests the current weather for a coordinate pair.
func (c *OpenWeatherClient) FetchByCoordinates(ctx context.Context, lat, lon float64) (weather.Record, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.fetch(ctx, values)
}

func (c *OpenWeatherClient) fetch(ctx context.Context, values url.Values) (weather.Record, error) {
	values.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return weather.Record{}, weather.NewError(weather.KindTransport, err.Error(), err)
	}

	resp, err := doRequest(c.client, c.circuit, req)
	if err != nil {
		return weather.Record{}, weather.NewError(weather.KindTransport, transportMessage(err), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return weather.Record{}, weather.NewError(weather.KindNotFound, "city not found", nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		se := &statusError{code: resp.StatusCode}
		return weather.Record{}, weather.NewError(weather.KindTransport, se.Error(), se)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return weather.Record{}, weather.NewError(weather.KindTransport, err.Error(), err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return weather.Record{}, weather.NewError(weather.KindEmptyResponse, "empty response body", nil)
	}

	return weather.Decode(body)
}

// transportMessage strips the request URL from *url.Error so the API key
// never reaches the user or the logs.
func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Sprintf("%s request failed: %v", ue.Op, ue.Err)
	}
	return err.Error()
}

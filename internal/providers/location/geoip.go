package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// GeoIP approximates the position from the host's public address.
type GeoIP struct {
	client   *resty.Client
	endpoint string
}

// geoResponse covers the common IP geolocation response shapes.
type geoResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewGeoIP creates a backend querying endpoint. timeout bounds one reading.
func NewGeoIP(endpoint string, timeout time.Duration) *GeoIP {
	// Pooled transport only; a reading is never retried.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetTransport(retryClient.HTTPClient.Transport).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "pms-shell/1.0")

	return &GeoIP{client: client, endpoint: endpoint}
}

// CurrentFix implements Provider.
func (g *GeoIP) CurrentFix(ctx context.Context) (Fix, error) {
	var body geoResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&body).
		ForceContentType("application/json").
		Get(g.endpoint)
	if err != nil {
		if Classify(err) == CodeTimeout {
			return Fix{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Fix{}, fmt.Errorf("position unavailable: %w", err)
	}
	if resp.IsError() {
		return Fix{}, fmt.Errorf("position unavailable: %s", resp.Status())
	}
	return body.fix()
}

func (r geoResponse) fix() (Fix, error) {
	if r.Status != "" && r.Status != "success" {
		msg := r.Message
		if msg == "" {
			msg = r.Status
		}
		return Fix{}, fmt.Errorf("position unavailable: %s", msg)
	}
	switch {
	case r.Lat != nil && r.Lon != nil:
		return Fix{Latitude: *r.Lat, Longitude: *r.Lon}, nil
	case r.Latitude != nil && r.Longitude != nil:
		return Fix{Latitude: *r.Latitude, Longitude: *r.Longitude}, nil
	default:
		return Fix{}, errors.New("position unavailable: response carries no coordinates")
	}
}

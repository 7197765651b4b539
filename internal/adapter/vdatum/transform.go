package vdatum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultTransformURL is the public geodetic transform endpoint.
const DefaultTransformURL = "https://vdatum.noaa.gov/vdatumweb/api/convert"

// GeodeticClient converts heights between vertical datums through the
// online transform service. Leveled-family systems have no published
// conversion grids, so their offsets come from here point by point.
type GeodeticClient struct {
	baseURL string
	client  *http.Client
}

// NewGeodeticClient builds a client against baseURL (the default
// endpoint when empty).
func NewGeodeticClient(baseURL string, timeout time.Duration) *GeodeticClient {
	if baseURL == "" {
		baseURL = DefaultTransformURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeodeticClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// transformResponse is the subset of the service reply we consume. The
// service reports coordinates and heights as strings.
type transformResponse struct {
	TZ string `json:"t_z"`
}

// serviceNoData is the magnitude the service uses for "no conversion
// available here".
const serviceNoData = 999999

// Convert transforms height from one datum to another at (lat, lon).
func (c *GeodeticClient) Convert(ctx context.Context, fromDatum, toDatum string, lat, lon, height float64) (float64, error) {
	q := url.Values{}
	q.Set("s_x", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("s_y", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("s_z", strconv.FormatFloat(height, 'f', -1, 64))
	q.Set("s_v_frame", fromDatum)
	q.Set("t_v_frame", toDatum)
	q.Set("s_h_frame", "NAD83_2011")
	q.Set("t_h_frame", "NAD83_2011")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build transform request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("transform request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("transform service returned %s", resp.Status)
	}

	var tr transformResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return 0, fmt.Errorf("decode transform response: %w", err)
	}
	z, err := strconv.ParseFloat(tr.TZ, 64)
	if err != nil {
		return 0, fmt.Errorf("transform response t_z %q: %w", tr.TZ, err)
	}
	if z <= -serviceNoData || z >= serviceNoData {
		return 0, fmt.Errorf("no %s to %s conversion at (%.4f, %.4f)", fromDatum, toDatum, lat, lon)
	}
	return z, nil
}

package obs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
)

// SeriesFetcher downloads raw observation series from the public
// provider APIs into a local directory, one file per station. Parsing
// and quality control happen downstream; this stage only retrieves.
type SeriesFetcher struct {
	client  *http.Client
	dir     string
	start   time.Time
	end     time.Time
	usgsKey string
	logger  *slog.Logger
}

// NewSeriesFetcher wires a fetcher writing into dir for one window.
func NewSeriesFetcher(dir string, start, end time.Time, usgsKey string, logger *slog.Logger) (*SeriesFetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create observation directory: %w", err)
	}
	return &SeriesFetcher{
		client:  &http.Client{Timeout: 60 * time.Second},
		dir:     dir,
		start:   start,
		end:     end,
		usgsKey: usgsKey,
		logger:  logger,
	}, nil
}

// Fetch retrieves one station's series and writes it to disk. The pool
// schedules calls within each provider's concurrency cap.
func (f *SeriesFetcher) Fetch(ctx context.Context, st domain.Station) error {
	u, ext, err := f.stationURL(st)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s observations: %w", st.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s observations: HTTP %d", st.ID, resp.StatusCode)
	}

	path := filepath.Join(f.dir, fmt.Sprintf("%s_%s.%s", st.Provider, st.ID, ext))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s observations: %w", st.ID, err)
	}
	f.logger.Debug("observation series fetched", "station", st.ID, "provider", st.Provider, "path", path)
	return nil
}

// stationURL builds the provider request for one station.
func (f *SeriesFetcher) stationURL(st domain.Station) (endpoint, ext string, err error) {
	switch st.Provider {
	case "CO-OPS":
		q := url.Values{}
		q.Set("begin_date", f.start.UTC().Format("20060102"))
		q.Set("end_date", f.end.UTC().Format("20060102"))
		q.Set("station", st.ID)
		q.Set("product", "water_level")
		q.Set("datum", "MLLW")
		q.Set("units", "metric")
		q.Set("time_zone", "gmt")
		q.Set("format", "csv")
		return "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter?" + q.Encode(), "csv", nil
	case "NDBC":
		return fmt.Sprintf("https://www.ndbc.noaa.gov/data/realtime2/%s.txt", st.ID), "txt", nil
	case "USGS":
		q := url.Values{}
		q.Set("format", "json")
		q.Set("sites", st.ID)
		q.Set("parameterCd", "00065")
		q.Set("startDT", f.start.UTC().Format(time.RFC3339))
		q.Set("endDT", f.end.UTC().Format(time.RFC3339))
		if f.usgsKey != "" {
			q.Set("api_key", f.usgsKey)
		}
		return "https://waterservices.usgs.gov/nwis/iv/?" + q.Encode(), "json", nil
	case "CHS":
		q := url.Values{}
		q.Set("time-series-code", "wlo")
		q.Set("from", f.start.UTC().Format(time.RFC3339))
		q.Set("to", f.end.UTC().Format(time.RFC3339))
		return fmt.Sprintf("https://api-iwls.dfo-mpo.gc.ca/api/v1/stations/%s/data?%s",
			url.PathEscape(st.ID), q.Encode()), "json", nil
	}
	return "", "", fmt.Errorf("station %s: no retrieval endpoint for provider %q", st.ID, st.Provider)
}

package obs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"go.ngs.io/ofs-skill/internal/domain"
)

func TestProviderWorkers(t *testing.T) {
	tests := []struct {
		provider string
		key      bool
		want     int
	}{
		{"CO-OPS", false, 6},
		{"NDBC", false, 6},
		{"CHS", false, 1},
		{"USGS", true, 4},
		{"USGS", false, 2},
		{"somewhere-else", true, 2},
	}
	for _, tt := range tests {
		if got := providerWorkers(tt.provider, tt.key); got != tt.want {
			t.Errorf("providerWorkers(%q, %v) = %d, want %d", tt.provider, tt.key, got, tt.want)
		}
	}
}

type countingFetcher struct {
	mu       sync.Mutex
	inflight map[string]int
	peak     map[string]int
	calls    atomic.Int64
	fail     map[string]error
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{
		inflight: map[string]int{},
		peak:     map[string]int{},
		fail:     map[string]error{},
	}
}

func (c *countingFetcher) Fetch(_ context.Context, st domain.Station) error {
	c.mu.Lock()
	c.inflight[st.Provider]++
	if c.inflight[st.Provider] > c.peak[st.Provider] {
		c.peak[st.Provider] = c.inflight[st.Provider]
	}
	c.mu.Unlock()

	c.calls.Add(1)

	c.mu.Lock()
	c.inflight[st.Provider]--
	err := c.fail[st.ID]
	c.mu.Unlock()
	return err
}

func TestPoolRunsAllStations(t *testing.T) {
	fetcher := newCountingFetcher()
	pool := NewPool(fetcher, false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var stations []domain.Station
	for i := 0; i < 8; i++ {
		stations = append(stations, domain.Station{ID: string(rune('a' + i)), Provider: "CO-OPS"})
	}
	stations = append(stations, domain.Station{ID: "chs1", Provider: "CHS"})

	if err := pool.Run(context.Background(), stations); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := fetcher.calls.Load(); got != 9 {
		t.Errorf("fetched %d stations, want 9", got)
	}
	if fetcher.peak["CHS"] > 1 {
		t.Errorf("CHS ran %d concurrent fetches, cap is 1", fetcher.peak["CHS"])
	}
}

func TestPoolSkipsFailedStations(t *testing.T) {
	fetcher := newCountingFetcher()
	fetcher.fail["bad"] = errors.New("upstream 503")
	pool := NewPool(fetcher, false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stations := []domain.Station{
		{ID: "bad", Provider: "NDBC"},
		{ID: "good", Provider: "NDBC"},
	}
	if err := pool.Run(context.Background(), stations); err != nil {
		t.Fatalf("a single station failure must not abort the run: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("fetched %d stations, want 2", got)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	fetcher := newCountingFetcher()
	pool := NewPool(fetcher, false, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Run(ctx, []domain.Station{{ID: "a", Provider: "CO-OPS"}})
	if err == nil {
		t.Error("cancelled context must surface from Run")
	}
}

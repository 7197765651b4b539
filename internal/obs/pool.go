package obs

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/ofs-skill/internal/domain"
)

// Fetcher retrieves the observation series for one station. The
// concrete providers live upstream; the pool only schedules them.
type Fetcher interface {
	Fetch(ctx context.Context, st domain.Station) error
}

// providerWorkers caps concurrent requests per observation provider.
// The limits mirror what each upstream tolerates before throttling.
func providerWorkers(provider string, hasAPIKey bool) int {
	switch provider {
	case "CO-OPS":
		return 6
	case "NDBC":
		return 6
	case "CHS":
		return 1
	case "USGS":
		if hasAPIKey {
			return 4
		}
		return 2
	}
	return 2
}

// Pool fans station fetches out per provider, each provider capped at
// its own concurrency.
type Pool struct {
	fetcher   Fetcher
	hasAPIKey bool
	logger    *slog.Logger
}

// NewPool wires a retrieval pool.
func NewPool(fetcher Fetcher, hasAPIKey bool, logger *slog.Logger) *Pool {
	return &Pool{fetcher: fetcher, hasAPIKey: hasAPIKey, logger: logger}
}

// Run fetches every station, grouped by provider. A station failure is
// logged and skipped; only context cancellation stops the run.
func (p *Pool) Run(ctx context.Context, stations []domain.Station) error {
	byProvider := make(map[string][]domain.Station)
	for _, st := range stations {
		byProvider[st.Provider] = append(byProvider[st.Provider], st)
	}

	g, ctx := errgroup.WithContext(ctx)
	for provider, group := range byProvider {
		workers := providerWorkers(provider, p.hasAPIKey)
		p.logger.Info("starting observation fetch pool",
			"provider", provider, "stations", len(group), "workers", workers)

		pg, pctx := errgroup.WithContext(ctx)
		pg.SetLimit(workers)
		stationsForProvider := group
		g.Go(func() error {
			for _, st := range stationsForProvider {
				st := st
				pg.Go(func() error {
					if err := pctx.Err(); err != nil {
						return err
					}
					if err := p.fetcher.Fetch(pctx, st); err != nil {
						if pctx.Err() != nil {
							return pctx.Err()
						}
						p.logger.Warn("observation fetch failed, skipping station",
							"station", st.ID, "provider", st.Provider, "error", err)
					}
					return nil
				})
			}
			return pg.Wait()
		})
	}
	return g.Wait()
}

// Command extract runs one model extraction from the command line and
// writes the station series as CSV files, one file per station and
// variable.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"go.ngs.io/ofs-skill/internal/adapter/ctlfile"
	"go.ngs.io/ofs-skill/internal/adapter/modeldata"
	"go.ngs.io/ofs-skill/internal/adapter/vdatum"
	"go.ngs.io/ofs-skill/internal/config"
	"go.ngs.io/ofs-skill/internal/domain"
	"go.ngs.io/ofs-skill/internal/obs"
	"go.ngs.io/ofs-skill/internal/usecase"
)

func main() {
	ofs := flag.String("ofs", "", "Operational forecast system name (required)")
	variables := flag.String("variables", "wl", "Comma-separated variables: wl, temp, salt, cu")
	kindStr := flag.String("kind", "fields", "Model file kind: fields or stations")
	castStr := flag.String("cast", "nowcast", "Cast: nowcast, forecast_a or forecast_b")
	startStr := flag.String("start", "", "Window start, RFC3339 (required)")
	endStr := flag.String("end", "", "Window end, RFC3339 (required)")
	cycle := flag.Int("cycle", 0, "Run cycle for forecast_a")
	datum := flag.String("datum", "", "Target vertical datum for water level")
	points := flag.String("points", "", "User coordinate file instead of the station inventory")
	obsDir := flag.String("obs-dir", "", "Also download observation series into this directory")
	outDir := flag.String("out", ".", "Output directory for the CSV files")
	configPath := flag.String("config", "", "Path to a configuration file (optional)")
	flag.Parse()

	if *ofs == "" || *startStr == "" || *endStr == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	req, err := buildRequest(*ofs, *variables, *kindStr, *castStr, *startStr, *endStr, *cycle, *datum)
	if err != nil {
		log.Fatalf("Bad request: %v", err)
	}

	var stations []domain.Station
	if *points != "" {
		req.UserCoords = true
		stations, err = obs.LoadUserPoints(*points, logger)
	} else {
		stations, err = obs.LoadInventory(filepath.Join(cfg.ControlDir, *ofs+"_stations.csv"))
	}
	if err != nil {
		log.Fatalf("Failed to load stations: %v", err)
	}

	extractor, err := buildExtractor(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if *obsDir != "" {
		fetcher, err := obs.NewSeriesFetcher(*obsDir, req.Start, req.End, cfg.USGSAPIKey, logger)
		if err != nil {
			log.Fatalf("Failed to set up observation fetch: %v", err)
		}
		pool := obs.NewPool(fetcher, cfg.USGSAPIKey != "", logger)
		if err := pool.Run(context.Background(), stations); err != nil {
			log.Fatalf("Observation fetch aborted: %v", err)
		}
	}

	results, err := extractor.Extract(context.Background(), req, stations)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	for _, res := range results {
		for _, st := range res.Stations {
			path := filepath.Join(*outDir,
				fmt.Sprintf("%s_%s_%s.csv", *ofs, st.StationID, res.Variable.String()))
			if err := writeStationCSV(path, res.Variable, st); err != nil {
				log.Fatalf("Failed to write %s: %v", path, err)
			}
			log.Printf("Wrote %s", path)
		}
	}
}

func buildRequest(ofs, variables, kindStr, castStr, startStr, endStr string,
	cycle int, datum string) (usecase.Request, error) {

	req := usecase.Request{OFS: ofs, Cycle: cycle, TargetDatum: datum}

	for _, tag := range strings.Split(variables, ",") {
		v, err := domain.ParseVariable(strings.TrimSpace(tag))
		if err != nil {
			return req, err
		}
		req.Variables = append(req.Variables, v)
	}

	var err error
	if req.Kind, err = domain.ParseFileKind(kindStr); err != nil {
		return req, err
	}
	if req.Cast, err = domain.ParseCast(castStr); err != nil {
		return req, err
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return req, fmt.Errorf("invalid start time (expected RFC3339): %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return req, fmt.Errorf("invalid end time (expected RFC3339): %w", err)
	}
	req.Start, req.End = start.UTC(), end.UTC()
	return req, nil
}

func buildExtractor(cfg config.Config, logger *slog.Logger) (*usecase.Extractor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	store, err := vdatum.NewStore(
		vdatum.NewS3Fetcher(s3Client, cfg.VDatumBucket),
		filepath.Join(cfg.CacheDir, "vdatum"), logger)
	if err != nil {
		return nil, err
	}
	resolver := vdatum.NewResolver(store,
		vdatum.NewGeodeticClient(cfg.TransformURL, 30*time.Second), cfg.AuxDir, logger)
	report := vdatum.NewReportWriter(cfg.ControlDir, logger)

	source := modeldata.NewSource(cfg.ModelRoot, cfg.UseS3, logger)
	loader, err := modeldata.NewLoader(modeldata.BucketFetcher{
		Model: vdatum.NewS3Fetcher(s3Client, cfg.ModelBucket),
		STOFS: vdatum.NewS3Fetcher(s3Client, cfg.STOFSBucket),
	}, filepath.Join(cfg.CacheDir, "model"), logger)
	if err != nil {
		return nil, err
	}

	repo := ctlfile.NewRepository(cfg.ControlDir, logger)
	return usecase.NewExtractor(source, loader, repo, resolver, report, logger), nil
}

func writeStationCSV(path string, v domain.VariableKind, st usecase.StationSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	defer w.Flush()

	if v == domain.Currents {
		if err := w.Write([]string{"time", "speed", "direction"}); err != nil {
			return err
		}
		for _, s := range st.Vector.Samples {
			rec := []string{
				s.Time.UTC().Format(time.RFC3339),
				csvFloat(s.Speed),
				csvFloat(s.Direction),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return w.Error()
	}

	if err := w.Write([]string{"time", "value"}); err != nil {
		return err
	}
	for _, s := range st.Series.Samples {
		if err := w.Write([]string{s.Time.UTC().Format(time.RFC3339), csvFloat(s.Value)}); err != nil {
			return err
		}
	}
	return w.Error()
}

// csvFloat writes masked samples as empty cells.
func csvFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

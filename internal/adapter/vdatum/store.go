// Package vdatum resolves the vertical offset between a model's native
// datum and a user-requested target datum. Conversion fields live in
// per-OFS netCDF files on the NODD open-data bucket; systems without
// published fields go through the online geodetic transform service.
package vdatum

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru/v2"

	"go.ngs.io/ofs-skill/internal/adapter/nc"
)

// ObjectFetcher copies one remote object into a local writer. The S3
// implementation is the production path; tests substitute a directory
// of fixture files.
type ObjectFetcher interface {
	Fetch(ctx context.Context, key string, dst io.Writer) error
}

// S3Fetcher reads objects from the NODD public bucket with anonymous
// credentials.
type S3Fetcher struct {
	client *s3.Client
	bucket string
}

// NewS3Fetcher wraps an S3 client for one bucket.
func NewS3Fetcher(client *s3.Client, bucket string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket}
}

// Fetch streams the object body into dst.
func (f *S3Fetcher) Fetch(ctx context.Context, key string, dst io.Writer) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 get %s/%s: %w", f.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()
	if _, err := io.Copy(dst, out.Body); err != nil {
		return fmt.Errorf("s3 read %s/%s: %w", f.bucket, key, err)
	}
	return nil
}

// datasetCacheSize bounds how many per-OFS conversion datasets stay
// loaded. A batch touches one or two systems; the bound only matters
// for long-lived service processes.
const datasetCacheSize = 8

// Store stages per-OFS vdatum files locally and hands out lazily
// loaded datasets. The netCDF C library wants a local path, so remote
// objects are staged into cacheDir before opening.
type Store struct {
	fetcher  ObjectFetcher
	cacheDir string
	logger   *slog.Logger
	cache    *lru.Cache[string, *Dataset]
}

// NewStore creates a store staging into cacheDir.
func NewStore(fetcher ObjectFetcher, cacheDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create vdatum cache dir: %w", err)
	}
	cache, err := lru.New[string, *Dataset](datasetCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{fetcher: fetcher, cacheDir: cacheDir, logger: logger, cache: cache}, nil
}

// Dataset returns the conversion dataset for one OFS, staging the
// remote file on first use.
func (s *Store) Dataset(ctx context.Context, ofs string) (*Dataset, error) {
	if d, ok := s.cache.Get(ofs); ok {
		return d, nil
	}

	local := filepath.Join(s.cacheDir, fmt.Sprintf("%s_vdatums.nc", ofs))
	if _, err := os.Stat(local); err != nil {
		key := fmt.Sprintf("OFS_Grid_Datum/%s_vdatums.nc", ofs)
		s.logger.Info("staging vdatum file", "ofs", ofs, "key", key)
		if err := s.stage(ctx, key, local); err != nil {
			return nil, err
		}
	}

	// A staged file that does not open is an open failure, not a
	// missing-datum condition; verify before handing the dataset out.
	ds, err := nc.Open(local)
	if err != nil {
		return nil, fmt.Errorf("open vdatum file %s: %w", local, err)
	}
	_ = ds.Close()

	d := &Dataset{path: local, fields: make(map[string]field)}
	s.cache.Add(ofs, d)
	return d, nil
}

func (s *Store) stage(ctx context.Context, key, local string) error {
	tmp, err := os.CreateTemp(s.cacheDir, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := s.fetcher.Fetch(ctx, key, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), local)
}

type field struct {
	vals []float64
	dims []uint64
}

// Dataset is one OFS's conversion file. Fields load on demand and stay
// cached; the file itself is only open during a read.
type Dataset struct {
	path   string
	mu     sync.RWMutex
	fields map[string]field
	lat    []float64
	lon    []float64
}

// Field reads one conversion variable, flattened row-major with its
// dimension lengths.
func (d *Dataset) Field(name string) ([]float64, []uint64, error) {
	d.mu.RLock()
	if f, ok := d.fields[name]; ok {
		d.mu.RUnlock()
		return f.vals, f.dims, nil
	}
	d.mu.RUnlock()

	ds, err := nc.Open(d.path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = ds.Close() }()

	v, _, err := nc.FindVar(ds, name)
	if err != nil {
		return nil, nil, err
	}
	dims, err := nc.Dims(v)
	if err != nil {
		return nil, nil, err
	}
	start := make([]uint64, len(dims))
	vals, err := nc.ReadSlice(v, start, dims)
	if err != nil {
		return nil, nil, fmt.Errorf("read conversion field %s: %w", name, err)
	}

	d.mu.Lock()
	d.fields[name] = field{vals: vals, dims: dims}
	d.mu.Unlock()
	return vals, dims, nil
}

// Coordinates returns the dataset's own longitude/latitude arrays,
// which nodal-mesh station sampling matches against.
func (d *Dataset) Coordinates() (lat, lon []float64, err error) {
	d.mu.RLock()
	if d.lat != nil {
		lat, lon = d.lat, d.lon
		d.mu.RUnlock()
		return lat, lon, nil
	}
	d.mu.RUnlock()

	ds, err := nc.Open(d.path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = ds.Close() }()

	latVar, _, err := nc.FindVar(ds, "latitude", "lat", "y")
	if err != nil {
		return nil, nil, err
	}
	lonVar, _, err := nc.FindVar(ds, "longitude", "lon", "x")
	if err != nil {
		return nil, nil, err
	}
	if lat, err = nc.Read1D(latVar); err != nil {
		return nil, nil, err
	}
	if lon, err = nc.Read1D(lonVar); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	d.lat, d.lon = lat, lon
	d.mu.Unlock()
	return lat, lon, nil
}

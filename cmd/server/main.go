// Package main provides the model extraction HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"go.ngs.io/ofs-skill/internal/adapter/ctlfile"
	"go.ngs.io/ofs-skill/internal/adapter/modeldata"
	"go.ngs.io/ofs-skill/internal/adapter/vdatum"
	"go.ngs.io/ofs-skill/internal/config"
	httpHandler "go.ngs.io/ofs-skill/internal/http"
	"go.ngs.io/ofs-skill/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to a configuration file (optional)")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("ofs-skill version %s\n", version)
		return
	}

	// Load configuration from file and environment.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	log.Printf("Starting OFS extraction server...")
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Control directory: %s", cfg.ControlDir)
	log.Printf("Model archive root: %s", cfg.ModelRoot)
	log.Printf("Object-store fallback: %v", cfg.UseS3)

	extractor, err := buildExtractor(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Setup router.
	router := httpHandler.SetupRouter(extractor, cfg.ControlDir, logger)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("API endpoints:")
	log.Printf("  - GET /v1/extract")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildExtractor wires the extraction pipeline from the configuration.
func buildExtractor(cfg config.Config, logger *slog.Logger) (*usecase.Extractor, error) {
	// The open-data buckets are public; anonymous credentials keep the
	// process free of any AWS account setup.
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
	transformer := vdatum.NewGeodeticClient(cfg.TransformURL, 30*time.Second)
	resolver := vdatum.NewResolver(store, transformer, cfg.AuxDir, logger)
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

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("OFS Extraction Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  ofs-skill-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println("  -config PATH   Load configuration from a file")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  OFS_PORT                Server port (default: 8080)")
	fmt.Println("  OFS_CONTROL_DIR         Control file directory (default: ./control_files)")
	fmt.Println("  OFS_MODEL_ROOT          Local model archive root (default: ./model_data)")
	fmt.Println("  OFS_CACHE_DIR           Staging cache directory (default: ./cache)")
	fmt.Println("  OFS_USE_S3              Enable the object-store fallback (default: true)")
	fmt.Println("  OFS_MODEL_BUCKET        Model output bucket (default: noaa-nos-ofs-pds)")
	fmt.Println("  OFS_STOFS_BUCKET        STOFS 3-D output bucket (default: noaa-nos-stofs3d-pds)")
	fmt.Println("  OFS_TRANSFORM_URL       Geodetic transform service endpoint")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  ofs-skill-server")
	fmt.Println()
	fmt.Println("  # Start server on custom port")
	fmt.Println("  OFS_PORT=3000 ofs-skill-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health       Health check")
	fmt.Println("  GET /v1/extract   Extract model series at stations")
	fmt.Println()
}

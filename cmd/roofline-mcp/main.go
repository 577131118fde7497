package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/roofline-mcp/internal/config"
	"github.com/ironsheep/roofline-mcp/internal/detection"
	"github.com/ironsheep/roofline-mcp/internal/imaging"
	"github.com/ironsheep/roofline-mcp/internal/logger"
	"github.com/ironsheep/roofline-mcp/internal/server"
	"github.com/ironsheep/roofline-mcp/internal/suggest"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("roofline-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for the MCP protocol.
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "detect" {
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: roofline-mcp detect <image>")
			os.Exit(2)
		}
		if err := runDetect(os.Stdout, os.Args[2], detectionOptions(cfg), log); err != nil {
			log.WithError(err).Error("detection failed")
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := serverOptions(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure server")
	}

	server.Version = Version
	log.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
		"suggest": cfg.SuggestBackend,
	}).Debug("roofline MCP server starting")

	srv := server.New(opts)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server error")
	}
}

func printUsage() {
	fmt.Println("roofline-mcp - MCP server for roof line detection")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  roofline-mcp                 Serve MCP over stdin/stdout")
	fmt.Println("  roofline-mcp detect <image>  Print detected roof lines as JSON")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  ROOFLINE_LOG_LEVEL=info           debug, info, warn or error")
	fmt.Println("  ROOFLINE_LOG_FORMAT=text          text or json")
	fmt.Println("  ROOFLINE_CACHE_SIZE=32            Decoded images kept in memory")
	fmt.Println("  ROOFLINE_PROCESSING_WIDTH=800     Analysis width for top-down photos")
	fmt.Println("  ROOFLINE_SENSITIVITY=0.5          Edge sensitivity, 0-1")
	fmt.Println("  ROOFLINE_DETAIL_SUPPRESSION=0.25  Texture suppression, 0-1")
	fmt.Println("  ROOFLINE_SUGGEST_BACKEND=local    local or gemini")
	fmt.Println("  GEMINI_API_KEY                    Required for the gemini backend")
	fmt.Println("  ROOFLINE_GEMINI_MODEL             Default gemini-2.5-flash")
}

func detectionOptions(cfg *config.Config) detection.Options {
	opts := detection.DefaultOptions()
	opts.ProcessingWidth = cfg.ProcessingWidth
	opts.Sensitivity = cfg.Sensitivity
	opts.DetailSuppression = cfg.DetailSuppression
	return opts
}

// serverOptions builds server options from cfg, connecting the remote
// suggester when one is configured.
func serverOptions(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (server.Options, error) {
	opts := server.DefaultOptions()
	opts.CacheSize = cfg.CacheSize
	opts.Detection = detectionOptions(cfg)
	opts.Logger = log

	if cfg.SuggestBackend == config.BackendGemini {
		gen, err := suggest.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return opts, err
		}
		detector := detection.NewDetector(opts.Detection, log)
		opts.Suggester = suggest.NewRemoteSuggester(gen, detector, opts.Outline, log)
	}
	return opts, nil
}

// runDetect detects roof lines in the image at path and writes the result as JSON.
func runDetect(w io.Writer, path string, opts detection.Options, log logrus.FieldLogger) error {
	img, err := imaging.NewImageCache(1).Load(path)
	if err != nil {
		return err
	}
	res, err := detection.NewDetector(opts, log).Detect(img)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	config "github.com/media-luna/eureka/configs"
	"github.com/media-luna/eureka/internal/capture"
	"github.com/media-luna/eureka/internal/ingest"
	"github.com/media-luna/eureka/internal/recognizer"
	"github.com/media-luna/eureka/internal/store"
	"github.com/media-luna/eureka/internal/store/mysql"
	"github.com/media-luna/eureka/internal/store/postgres"
	"github.com/media-luna/eureka/utils/logger"
)

func main() {
	ingestFile := flag.String("file", "", "Path to a single audio file to ingest")
	ingestDir := flag.String("dir", "", "Path to a directory of audio files to ingest")
	recognizeFile := flag.String("recognize", "", "Path to an audio file to recognize")
	recognizeDir := flag.String("recognize-dir", "", "Path to a directory of audio files to recognize")
	microphoneCmd := flag.Bool("microphone", false, "Record 30 seconds from the default microphone and recognize it")
	workerCount := flag.Int("workers", 0, "Worker pool size for -dir and -recognize-dir (0 = worker_count from config)")
	configPath := flag.String("config", "", "Path to config.yaml (default: ./configs/config.yaml)")
	flag.Parse()

	path := *configPath
	if path == "" {
		dir, _ := os.Getwd()
		path = filepath.Join(dir, "configs", "config.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error(fmt.Errorf("failed to load configuration: %w", err))
		os.Exit(1)
	}

	idx, err := openIndex(cfg)
	if err != nil {
		logger.Error(fmt.Errorf("failed to open store: %w", err))
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()

	switch {
	case *microphoneCmd:
		if err := runMicrophone(ctx, idx, cfg.FingerprintLimit); err != nil {
			logger.Error(err)
			os.Exit(1)
		}

	case *recognizeFile != "":
		r := recognizer.New(idx, cfg.FingerprintLimit)
		result, err := r.Recognize(ctx, *recognizeFile)
		if err != nil {
			logger.Error(fmt.Errorf("recognize failed: %w", err))
			os.Exit(1)
		}
		if result == nil {
			logger.Info("no match")
			return
		}
		fmt.Printf("%s (clip_id=%d) confidence=%d relative_confidence=%.2f offset=%.5fs\n",
			result.ClipName, result.ClipID, result.Confidence, result.RelativeConfidence, result.OffsetSeconds)

	case *recognizeDir != "":
		extensions := cfg.Extensions
		if len(extensions) == 0 {
			extensions = []string{".wav", ".mp3", ".flac"}
		}
		workers := *workerCount
		if workers == 0 {
			workers = cfg.WorkerCount
		}
		r := recognizer.New(idx, cfg.FingerprintLimit)
		results, err := r.RecognizeDirectory(ctx, *recognizeDir, extensions, workers)
		if err != nil {
			logger.Error(fmt.Errorf("recognize directory failed: %w", err))
			os.Exit(1)
		}
		for _, res := range results {
			if res.Err != nil {
				logger.Error(fmt.Errorf("%s: %w", res.Path, res.Err))
				continue
			}
			if res.Result == nil {
				logger.Info(fmt.Sprintf("%s: no match", res.Path))
				continue
			}
			fmt.Printf("%s: %s (clip_id=%d) confidence=%d relative_confidence=%.2f\n",
				res.Path, res.Result.ClipName, res.Result.ClipID, res.Result.Confidence, res.Result.RelativeConfidence)
		}

	case *ingestDir != "":
		ing, err := ingest.New(ctx, idx, cfg.FingerprintLimit)
		if err != nil {
			logger.Error(fmt.Errorf("failed to start ingestor: %w", err))
			os.Exit(1)
		}
		extensions := cfg.Extensions
		if len(extensions) == 0 {
			extensions = []string{".wav", ".mp3", ".flac"}
		}
		workers := *workerCount
		if workers == 0 {
			workers = cfg.WorkerCount
		}
		results, err := ing.IngestDirectory(ctx, *ingestDir, extensions, workers)
		if err != nil {
			logger.Error(fmt.Errorf("ingest directory failed: %w", err))
			os.Exit(1)
		}
		for _, r := range results {
			if r.Err != nil {
				logger.Error(fmt.Errorf("%s: %w", r.Path, r.Err))
				continue
			}
			if r.Skipped {
				logger.Info(fmt.Sprintf("skipped %s (already fingerprinted)", r.Path))
				continue
			}
			logger.Info(fmt.Sprintf("ingested %s as clip %d", r.Path, r.ClipID))
		}

	case *ingestFile != "":
		ing, err := ingest.New(ctx, idx, cfg.FingerprintLimit)
		if err != nil {
			logger.Error(fmt.Errorf("failed to start ingestor: %w", err))
			os.Exit(1)
		}
		result := ing.IngestFile(ctx, *ingestFile, nil, nil)
		if result.Err != nil {
			logger.Error(result.Err)
			os.Exit(1)
		}
		if result.Skipped {
			logger.Info("already fingerprinted")
			return
		}
		logger.Info(fmt.Sprintf("ingested as clip %d", result.ClipID))

	default:
		fmt.Fprintln(os.Stderr, "specify one of -file, -dir, -recognize, -recognize-dir, or -microphone")
		flag.Usage()
		os.Exit(1)
	}
}

func openIndex(cfg *config.Config) (store.Index, error) {
	switch cfg.DatabaseType {
	case "mysql":
		return mysql.Open(mysql.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
		})
	case "postgresql":
		return postgres.Open(postgres.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		})
	default:
		return nil, fmt.Errorf("unsupported database_type %q", cfg.DatabaseType)
	}
}

// runMicrophone records from the default input device, fingerprints
// the capture, and reports the best match, matching the facade's
// behavior for a file source rather than driving its own recognition
// loop (spec §9: microphone request shapes are opaque; only the
// PCM-producer contract matters).
func runMicrophone(ctx context.Context, idx store.Index, fingerprintLimit int) error {
	rec, err := capture.NewRecorder()
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	logger.Info("listening...")
	samples, sampleRate, err := rec.Record(ctx)
	if err != nil {
		return err
	}

	result, err := recognizer.New(idx, fingerprintLimit).RecognizeSamples(ctx, samples, sampleRate)
	if err != nil {
		return err
	}
	if result == nil {
		logger.Info("no match")
		return nil
	}

	fmt.Printf("%s (clip_id=%d) confidence=%d relative_confidence=%.2f\n",
		result.ClipName, result.ClipID, result.Confidence, result.RelativeConfidence)
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kofiasare/sankofa/internal/app"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/log"
)

// runIndex ingests a file or directory into the knowledge base.
func runIndex(logger log.Logger) error {
	if len(os.Args) < 3 {
		return errors.New("usage: sankofa index <path>")
	}
	path := os.Args[2]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if info.IsDir() {
		result, err := a.Indexer.AddDirectory(ctx, path)
		if err != nil {
			return fmt.Errorf("indexing directory: %w", err)
		}
		fmt.Printf("Indexed %d files (%d chunks) in %s\n",
			result.FilesAdded, result.ChunksAdded, result.Duration.Round(time.Millisecond))
		if result.FilesSkipped > 0 {
			fmt.Printf("Skipped %d unchanged or unsupported files\n", result.FilesSkipped)
		}
		if result.FilesFailed > 0 {
			fmt.Printf("Failed on %d files, see logs\n", result.FilesFailed)
		}
		return nil
	}

	chunks, err := a.Indexer.AddFile(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	fmt.Printf("Indexed %s as %d chunks\n", filepath.Base(path), chunks)
	return nil
}

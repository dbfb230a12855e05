// Package store provides the analysis result backends: an in-process map,
// a SQLite database and an S3 bucket of JSON documents.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/config"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (analysis.Store, error) {
	log := logger.With().Str("component", "store").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case "", config.BackendMemory:
		log.Debug().Msg("using in-memory result store")
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		log.Debug().Str("path", cfg.SQLite.Path).Msg("opening sqlite result store")
		return NewSQLiteStore(cfg.SQLite.Path)
	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("bucket", cfg.S3.Bucket).Str("prefix", cfg.S3.Prefix).Msg("using s3 result store")
		return NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// clone returns an independent deep copy of r.
func clone(r *models.AnalysisResult) (*models.AnalysisResult, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode analysis %s: %w", r.ID, err)
	}
	var out models.AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", r.ID, err)
	}
	return &out, nil
}

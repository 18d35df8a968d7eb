// Package publish archives a trained scene and delivers it to the
// configured sink. Exactly one sink strategy is active per deployment,
// resolved once at startup: supabase object storage when its credentials
// are present, otherwise a generic HTTP endpoint.
package publish

import (
	"context"
	"errors"
	"fmt"

	"gsplat/internal/config"
	"gsplat/internal/logger"
)

// ErrNoSink means neither storage nor HTTP delivery is configured.
var ErrNoSink = errors.New("no result sink configured")

// Sink delivers a finished archive and returns its public locator.
// Implementations must be safe for concurrent deliveries.
type Sink interface {
	Deliver(ctx context.Context, archivePath, name string) (string, error)
}

type Publisher struct {
	sink Sink
	log  *logger.Logger
}

// New resolves the active sink from configuration. A storage client that
// cannot be initialized falls back to the HTTP sink when one is
// configured; with no usable sink at all, Publish fails with ErrNoSink.
func New(cfg config.Config) *Publisher {
	log := logger.New("Publish")
	p := &Publisher{log: log}

	var httpSink Sink
	if cfg.OutputBucketURL != "" {
		httpSink = NewHTTPSink(cfg.OutputBucketURL, cfg.OutputBucketKey, cfg.UploadTimeout)
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		storageSink, err := NewStorageSink(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
		if err != nil {
			log.LogWarnf("storage client unavailable, falling back to HTTP sink: %v", err)
		} else {
			p.sink = storageSink
			return p
		}
	}

	p.sink = httpSink
	return p
}

// NewWithSink wires an explicit sink; used by tests and by callers that
// resolve delivery themselves.
func NewWithSink(sink Sink) *Publisher {
	return &Publisher{sink: sink, log: logger.New("Publish")}
}

// Publish archives resultDir as <sceneID>.zip and delivers it through the
// active sink, returning the public URL of the uploaded archive.
func (p *Publisher) Publish(ctx context.Context, resultDir, sceneID string) (string, error) {
	if p.sink == nil {
		return "", ErrNoSink
	}

	archivePath, err := Archive(resultDir, sceneID)
	if err != nil {
		return "", err
	}
	p.log.LogInfof("Created archive %s", archivePath)

	url, err := p.sink.Deliver(ctx, archivePath, sceneID+".zip")
	if err != nil {
		return "", fmt.Errorf("deliver %s: %w", archivePath, err)
	}
	p.log.LogInfof("Published %s -> %s", sceneID, url)
	return url, nil
}

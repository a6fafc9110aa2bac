package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrNoMedia is returned when not a single query produced a clip.
var ErrNoMedia = errors.New("stock: no media fetched")

// Sink stores a downloaded clip and returns its path.
type Sink interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (string, error)
}

// Fetcher downloads one clip per query.
type Fetcher struct {
	source Source
	logger *slog.Logger
}

// NewFetcher creates a Fetcher over source.
func NewFetcher(source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, logger: logger}
}

// Fetch searches, selects and downloads a clip for every query, in order.
// A query that fails at any step is logged and skipped. Fetch only fails
// when no clip was fetched at all, or when ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, queries []string, sink Sink) ([]string, error) {
	paths := make([]string, 0, len(queries))
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return paths, fmt.Errorf("fetch cancelled: %w", err)
		}

		path, sel, err := f.fetchOne(ctx, q, len(paths)+1, sink)
		if err != nil {
			f.logger.Warn("skipping query",
				slog.String("query", q),
				slog.String("error", err.Error()),
			)
			continue
		}

		f.logger.Info("clip fetched",
			slog.String("query", q),
			slog.String("path", path),
			slog.Int64("video_id", sel.Candidate.ID),
			slog.Float64("duration", sel.Candidate.Duration),
			slog.Float64("score", sel.Score.Value),
			slog.String("quality", sel.Rendition.Quality),
			slog.String("author", sel.Candidate.Author),
		)
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, ErrNoMedia
	}
	return paths, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, query string, n int, sink Sink) (string, *Selection, error) {
	candidates, err := f.source.Search(ctx, query)
	if err != nil {
		return "", nil, err
	}

	sel, err := Select(candidates, query)
	if err != nil {
		return "", nil, err
	}

	body, err := f.source.Open(ctx, sel.Rendition.Link)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = body.Close() }()

	path, err := sink.SaveTemp(ctx, fmt.Sprintf("clip_%02d.mp4", n), body)
	if err != nil {
		return "", nil, fmt.Errorf("save clip: %w", err)
	}
	return path, sel, nil
}

// Package dataset downloads the training dataset over HTTP.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/tabular"
)

// DefaultURL is the Ames, Iowa housing dataset.
const DefaultURL = "https://raw.githubusercontent.com/melindaleung/Ames-Iowa-Housing-Dataset/master/data/ames%20iowa%20housing.csv"

// Fetcher downloads a CSV dataset and parses it into a frame.
type Fetcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher for url. A nil client gets a default with timeout.
func NewFetcher(url string, client *http.Client, logger *zap.Logger) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{url: url, client: client, logger: logger}
}

// Fetch downloads and parses the dataset.
func (f *Fetcher) Fetch(ctx context.Context) (*frame.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download dataset: status %d: %s", resp.StatusCode, string(body))
	}

	data, err := tabular.ReadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	f.logger.Info("Dataset fetched",
		zap.String("url", f.url),
		zap.Int("rows", data.Len()),
		zap.Int("columns", len(data.Columns())),
		zap.Duration("took", time.Since(start)),
	)
	return data, nil
}

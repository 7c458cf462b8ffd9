package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json"
)

// Archiver writes a job's artifacts under jobs/<job id>/.
type Archiver struct {
	store   core.Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewArchiver creates an Archiver over store.
func NewArchiver(store core.Store, metrics *observability.Metrics, logger *slog.Logger) *Archiver {
	return &Archiver{store: store, metrics: metrics, logger: logger}
}

// Store returns the underlying blob store.
func (a *Archiver) Store() core.Store { return a.store }

// ArchiveJob stores the weather files and decile table of every spec, then
// the spec documents themselves, filling WeatherFiles and DecileFile. Files
// shared between variants of one job are written once.
func (a *Archiver) ArchiveJob(ctx context.Context, specs []*domain.SimulationSpec) error {
	written := make(map[string]string)
	put := func(key string, body []byte, contentType string, md map[string]string) (string, error) {
		if url, ok := written[key]; ok {
			return url, nil
		}
		info, err := a.store.Put(ctx, key, bytes.NewReader(body), core.PutOptions{ContentType: contentType, Metadata: md})
		if err != nil {
			a.metrics.ArchiveWrites.WithLabelValues("error").Inc()
			return "", fmt.Errorf("archive %s: %w", key, err)
		}
		a.metrics.ArchiveWrites.WithLabelValues("success").Inc()
		written[key] = info.URL
		return info.URL, nil
	}

	for _, s := range specs {
		dir := JobPrefix(s.JobID)
		md := map[string]string{"job-id": s.JobID, "variant": s.Variant}

		urls := make([]string, 0, len(s.Weather))
		for _, f := range s.Weather {
			url, err := put(path.Join(dir, "weather", safeName(f.Name)), f.Bytes(), contentTypeText, md)
			if err != nil {
				return err
			}
			urls = append(urls, url)
		}
		s.WeatherFiles = urls

		if s.Deciles != nil {
			key := path.Join(dir, "deciles", s.Start.String()+".txt")
			url, err := put(key, s.Deciles.Bytes(), contentTypeText, md)
			if err != nil {
				return err
			}
			s.DecileFile = url
		}

		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal spec %s: %w", s.Variant, err)
		}
		if _, err := put(path.Join(dir, "specs", safeName(s.Variant)+".json"), doc, contentTypeJSON, md); err != nil {
			return err
		}
	}

	if len(specs) > 0 {
		a.logger.Debug("archived job", "job_id", specs[0].JobID, "objects", len(written), "driver", a.store.Driver())
	}
	return nil
}

var unsafeKey = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeName makes s usable as a single key segment.
func safeName(s string) string {
	s = unsafeKey.ReplaceAllString(s, "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" || s == "." {
		return "_"
	}
	return s
}

// JobPrefix is the key prefix under which a job's artifacts are stored.
func JobPrefix(jobID string) string {
	return "jobs/" + safeName(jobID)
}

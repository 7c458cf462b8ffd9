package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
)

// SpecBuilder expands a paddock into simulation specs.
type SpecBuilder interface {
	Build(ctx context.Context, p domain.Paddock) ([]*domain.SimulationSpec, error)
}

// SpecArchiver stores a job's artifacts and records their locations on the specs.
type SpecArchiver interface {
	ArchiveJob(ctx context.Context, specs []*domain.SimulationSpec) error
}

// JobTransformer implements Transformer: it parses a job, builds its
// simulation specs, archives their files and serializes one record per spec.
type JobTransformer struct {
	builder  SpecBuilder
	archiver SpecArchiver
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a JobTransformer. Pass a nil archiver to publish
// specs without archiving their files.
func NewTransformer(builder SpecBuilder, archiver SpecArchiver, metrics *observability.Metrics, logger *slog.Logger) *JobTransformer {
	return &JobTransformer{
		builder:  builder,
		archiver: archiver,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *JobTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	paddock, err := domain.ParseJob(raw)
	if err != nil {
		return nil, err
	}

	specs, err := t.builder.Build(ctx, paddock)
	if err != nil {
		return nil, fmt.Errorf("build job %s: %w", paddock.JobID, err)
	}

	if t.archiver != nil {
		if err := t.archiver.ArchiveJob(ctx, specs); err != nil {
			return nil, fmt.Errorf("archive job %s: %w", paddock.JobID, err)
		}
	}

	outs := make([]domain.OutputEvent, 0, len(specs))
	for _, s := range specs {
		out, err := domain.SerializeSpec(s)
		if err != nil {
			return nil, fmt.Errorf("job %s variant %s: %w", paddock.JobID, s.Variant, err)
		}
		outs = append(outs, out)
	}

	t.metrics.SimulationsBuilt.WithLabelValues(string(paddock.Report)).Add(float64(len(specs)))
	t.logger.Info("job built",
		"job_id", paddock.JobID,
		"report", paddock.Report,
		"simulations", len(specs),
	)
	return outs, nil
}

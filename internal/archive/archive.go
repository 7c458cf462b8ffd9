// Package archive stores the artifacts of a built job (weather files, decile
// tables and spec documents) in a blob store and records their locations on
// the simulation specs.
package archive

import (
	"context"
	"fmt"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/fs"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/memory"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/s3"
)

// Config selects and configures an archive backend.
type Config struct {
	Driver      core.Driver
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open returns the store for cfg.Driver. An empty driver means filesystem.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Driver {
	case "", core.DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", cfg.Driver)
	}
}

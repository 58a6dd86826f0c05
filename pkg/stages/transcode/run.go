// Package transcode implements the software transcode stages: the overlay
// export used when realtime capture is unavailable, container conversion,
// and raw vertical extraction.
package transcode

import (
	"context"
	"fmt"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// Run executes job on a fresh engine job and returns the output bytes.
// Every file the job created is deleted on all exit paths, and the job's
// store is closed. Cleanup failures are logged, not returned.
func Run(ctx context.Context, eng ports.TranscodeEngine, job Job, logger ports.Logger) ([]byte, error) {
	j, err := eng.NewJob()
	if err != nil {
		return nil, &pipeline.EncodingError{Op: job.Name, Err: err}
	}
	defer func() {
		if cerr := j.Close(); cerr != nil {
			logger.Warn("Cannot close %s job: %v", job.Name, cerr)
		}
	}()

	var written []string
	defer func() {
		for _, name := range written {
			if derr := j.DeleteFile(name); derr != nil {
				logger.Warn("Cannot delete %s: %v", name, derr)
			}
		}
	}()

	for _, name := range job.InputNames() {
		if err := j.WriteFile(name, job.Inputs[name]); err != nil {
			return nil, &pipeline.EncodingError{Op: job.Name, Err: fmt.Errorf("write %s: %w", name, err)}
		}
		written = append(written, name)
	}

	logger.Debug("Running %s job", job.Name)
	if err := j.Exec(ctx, job.Args); err != nil {
		if ctx.Err() != nil {
			return nil, pipeline.ErrCancelled
		}
		// A partial output may exist.
		if _, rerr := j.ReadFile(job.Output); rerr == nil {
			written = append(written, job.Output)
		}
		return nil, &pipeline.EncodingError{Op: job.Name, Err: err}
	}

	data, err := j.ReadFile(job.Output)
	if err != nil {
		return nil, &pipeline.EncodingError{Op: job.Name, Err: fmt.Errorf("read %s: %w", job.Output, err)}
	}
	written = append(written, job.Output)
	return data, nil
}

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sdejongh/p4harmonize/pkg/compare"
	"github.com/sdejongh/p4harmonize/pkg/index"
	"github.com/sdejongh/p4harmonize/pkg/logging"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
)

// Reporting intervals for the compare phase
const (
	compareProgressEvery = 100
	compareLogEvery      = 50000
)

// Reconciler classifies the union of two indexed trees
type Reconciler struct {
	comparator compare.Comparator
	pool       *Pool
	formatter  output.Formatter
	logger     logging.Logger
}

// NewReconciler creates a reconciler comparing shared paths on maxWorkers goroutines
func NewReconciler(comparator compare.Comparator, maxWorkers int, formatter output.Formatter, logger logging.Logger) *Reconciler {
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Reconciler{
		comparator: comparator,
		pool:       NewPool(maxWorkers),
		formatter:  formatter,
		logger:     logger,
	}
}

// Reconcile partitions both trees by case-folded path and compares every
// shared pair. Every set of the result is sorted by case-folded path, so the
// result does not depend on the order comparisons complete in.
func (r *Reconciler) Reconcile(ctx context.Context, src *index.Index[*models.SourceFile], dst *index.Index[*models.DestFile]) (*models.Classification, error) {
	onlySrc, onlyDst, shared := index.Partition(src, dst)

	c := &models.Classification{
		SourceOnly: make([]*models.SourceFile, 0, len(onlySrc)),
		DestOnly:   make([]*models.DestFile, 0, len(onlyDst)),
	}
	for _, key := range onlySrc {
		f, _ := src.Get(key)
		c.SourceOnly = append(c.SourceOnly, f)
	}
	for _, key := range onlyDst {
		f, _ := dst.Get(key)
		c.DestOnly = append(c.DestOnly, f)
	}

	start := time.Now()
	r.logger.Info(ctx, "comparing shared files", logging.Fields{
		"shared":  len(shared),
		"workers": r.pool.Size(),
	})
	r.formatter.Progress(output.ProgressUpdate{
		Type:       output.UpdatePhaseStart,
		Phase:      output.PhaseCompare,
		TotalFiles: len(shared),
	})

	// results are written by position, which keeps key order
	results := make([]*compare.Result, len(shared))
	var mu sync.Mutex
	done := 0

	err := r.pool.Run(ctx, len(shared), func(ctx context.Context, i int) error {
		s, _ := src.Get(shared[i])
		d, _ := dst.Get(shared[i])

		result, err := r.comparator.Compare(ctx, models.Pair{Source: s, Dest: d})
		if err != nil {
			return err
		}
		results[i] = result

		mu.Lock()
		defer mu.Unlock()
		done++
		if done%compareProgressEvery == 0 || done == len(shared) {
			r.formatter.Progress(output.ProgressUpdate{
				Type:        output.UpdateCompared,
				Phase:       output.PhaseCompare,
				FilePath:    s.Path,
				CurrentFile: done,
				TotalFiles:  len(shared),
			})
		}
		if done%compareLogEvery == 0 {
			r.logger.Info(ctx, "compare progress", logging.Fields{
				"compared": done,
				"total":    len(shared),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		switch result.Outcome {
		case models.OutcomeCaseMismatch:
			c.CaseMismatch = append(c.CaseMismatch, result.Pair)
		case models.OutcomeChanged:
			c.Changed = append(c.Changed, result.Pair)
			r.logger.Debug(ctx, "file changed", logging.Fields{
				"path":   result.Pair.Source.Path,
				"reason": result.Reason,
			})
		default:
			c.Unchanged++
		}
	}

	r.logger.Info(ctx, "comparison complete", logging.Fields{
		"source_only":   len(c.SourceOnly),
		"dest_only":     len(c.DestOnly),
		"case_mismatch": len(c.CaseMismatch),
		"changed":       len(c.Changed),
		"unchanged":     c.Unchanged,
		"duration":      time.Since(start).String(),
	})
	return c, nil
}

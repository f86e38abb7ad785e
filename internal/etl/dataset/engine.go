package dataset

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pulse-cli/internal/etl"
)

// Engine orchestrates dataset load runs. Loads are strictly sequential: each
// dataset walks its tree, normalizes, and appends its batch before the next
// dataset starts. There is no concurrent writer to the warehouse.
type Engine struct {
	sink    Sink
	loadLog *etl.LoadLog // nil disables run history (e.g. sqlite sink)
	reg     *Registry
	dataDir string
}

// RunOpts configures which datasets to load.
type RunOpts struct {
	Granularity *Granularity // restrict to a document family
	Datasets    []string     // restrict to specific dataset names
}

// NewEngine creates a new load engine.
func NewEngine(sink Sink, loadLog *etl.LoadLog, reg *Registry, dataDir string) *Engine {
	return &Engine{
		sink:    sink,
		loadLog: loadLog,
		reg:     reg,
		dataDir: dataDir,
	}
}

// Run iterates over the selected datasets in registration order and loads
// each one. Loads are append-only with no duplicate detection: running the
// same snapshot twice doubles every row count. A failed dataset aborts that
// dataset's batch entirely but does not stop the remaining datasets; the run
// returns an error if any dataset failed.
func (e *Engine) Run(ctx context.Context, opts RunOpts) error {
	log := zap.L().With(zap.String("component", "etl.engine"))

	datasets, err := e.reg.Select(opts.Granularity, opts.Datasets)
	if err != nil {
		return err
	}

	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return nil
	}

	runID := uuid.New().String()
	log.Info("selected datasets", zap.Int("count", len(datasets)), zap.String("run_id", runID))

	var loaded, failed int

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dsLog := log.With(zap.String("dataset", ds.Name()), zap.String("granularity", ds.Granularity().String()))
		dsLog.Info("starting load")

		var loadID int64
		if e.loadLog != nil {
			loadID, err = e.loadLog.Start(ctx, runID, ds.Name())
			if err != nil {
				return eris.Wrapf(err, "engine: start load log for %s", ds.Name())
			}
		}

		start := time.Now()
		result, err := ds.Load(ctx, e.sink, e.dataDir)
		elapsed := time.Since(start)

		if err != nil {
			dsLog.Error("load failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			if e.loadLog != nil {
				if logErr := e.loadLog.Fail(ctx, loadID, err.Error()); logErr != nil {
					dsLog.Error("failed to record load failure", zap.Error(logErr))
				}
			}
			failed++
			continue
		}

		if e.loadLog != nil {
			llResult := &etl.LoadResult{
				RowsLoaded: result.RowsLoaded,
				Metadata:   result.Metadata,
			}
			if err := e.loadLog.Complete(ctx, loadID, llResult); err != nil {
				dsLog.Error("failed to record load completion", zap.Error(err))
			}
		}

		dsLog.Info("load complete",
			zap.Int64("rows", result.RowsLoaded),
			zap.Duration("elapsed", elapsed),
		)
		loaded++
	}

	log.Info("engine run complete",
		zap.Int("loaded", loaded),
		zap.Int("failed", failed),
		zap.String("run_id", runID),
	)

	if failed > 0 {
		return eris.Errorf("engine: %d of %d dataset loads failed", failed, loaded+failed)
	}
	return nil
}

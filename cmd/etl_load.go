package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pulse-cli/internal/etl"
	"github.com/sells-group/pulse-cli/internal/etl/dataset"
)

var etlLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load snapshot documents into the warehouse",
	Long: `Load the scraped snapshot tree into the warehouse tables.

By default all nine datasets are loaded in order. Use --granularity to
restrict to one document family, or --datasets for specific datasets.
Loads are append-only: re-running the same snapshot duplicates rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "etl.load"))

		sink, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer sink.Close()

		// Ensure the destination tables exist.
		if err := sink.Migrate(ctx); err != nil {
			return eris.Wrap(err, "etl load: migrate")
		}

		opts, err := parseLoadOpts(cmd)
		if err != nil {
			return err
		}

		var loadLog *etl.LoadLog
		if pool != nil {
			loadLog = etl.NewLoadLog(pool)
		}

		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir == "" {
			dataDir = cfg.ETL.DataDir
		}

		engine := dataset.NewEngine(sink, loadLog, dataset.NewRegistry(), dataDir)

		log.Info("starting load",
			zap.String("data_dir", dataDir),
			zap.String("driver", cfg.Store.Driver),
			zap.Strings("datasets", opts.Datasets),
		)

		if err := engine.Run(ctx, opts); err != nil {
			return eris.Wrap(err, "etl load")
		}

		fmt.Println("Load complete")
		return nil
	},
}

func init() {
	etlLoadCmd.Flags().String("granularity", "", "restrict to family: aggregated, map, top")
	etlLoadCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., aggr_transaction,map_user)")
	etlLoadCmd.Flags().String("data-dir", "", "snapshot tree root (default from config)")
	etlCmd.AddCommand(etlLoadCmd)
}

// parseLoadOpts extracts dataset.RunOpts from the cobra command flags.
func parseLoadOpts(cmd *cobra.Command) (dataset.RunOpts, error) {
	granStr, _ := cmd.Flags().GetString("granularity")
	datasetsStr, _ := cmd.Flags().GetString("datasets")

	var opts dataset.RunOpts

	if granStr != "" {
		g, err := dataset.ParseGranularity(granStr)
		if err != nil {
			return dataset.RunOpts{}, err
		}
		opts.Granularity = &g
	}

	if datasetsStr != "" {
		opts.Datasets = strings.Split(datasetsStr, ",")
		for i := range opts.Datasets {
			opts.Datasets[i] = strings.TrimSpace(opts.Datasets[i])
		}
	}

	return opts, nil
}

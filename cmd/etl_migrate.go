package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var etlMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply warehouse schema migrations",
	Long:  "Applies all pending SQL migrations for the pulse schema in lexicographic order (or the SQLite table set for the sqlite driver).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sink, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer sink.Close()

		if err := sink.Migrate(ctx); err != nil {
			return eris.Wrap(err, "etl migrate")
		}

		zap.L().Info("all migrations applied successfully")
		return nil
	},
}

func init() {
	etlCmd.AddCommand(etlMigrateCmd)
}

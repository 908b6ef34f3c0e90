package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/dosekeeper/internal/db"
	"github.com/terraincognita07/dosekeeper/internal/services"
)

// withRuntime opens the service graph without background polling, runs fn
// and closes everything again.
func (options *rootOptions) withRuntime(fn func(rt *runtime) error) (err error) {
	cfg, err := options.loadConfig()
	if err != nil {
		return err
	}
	logger, err := options.logger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rt, err := openRuntime(cfg, logger, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(rt); err != nil {
		return err
	}
	if persistErr := rt.store.LastPersistError(); persistErr != nil {
		return fmt.Errorf("changes could not be saved: %w", persistErr)
	}
	return nil
}

func newCatalogCommand(options *rootOptions) *cobra.Command {
	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the food catalog",
	}
	catalog.AddCommand(&cobra.Command{
		Use:   "import <file.csv>",
		Short: "Merge a catalog CSV (name,carbs per 100 g,source,note) into the foods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := services.LoadCatalogFile(args[0])
			if err != nil {
				return err
			}
			return options.withRuntime(func(rt *runtime) error {
				result := rt.store.MergeCatalog(rows)
				fmt.Fprintf(cmd.OutOrStdout(), "catalog merged: %d added, %d updated\n", result.Added, result.Updated)
				return nil
			})
		},
	})
	return catalog
}

func newExportCommand(options *rootOptions) *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export meal history",
	}

	var output, from, to string
	csvCommand := &cobra.Command{
		Use:   "csv",
		Short: "Write the meal history as semicolon separated CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.withRuntime(func(rt *runtime) error {
				exportRange, err := services.ParseExportRange(from, to, rt.store.Location())
				if err != nil {
					return err
				}
				payload, err := rt.store.ExportCSVRange(exportRange)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, payload)
			})
		},
	}
	csvCommand.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	csvCommand.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	csvCommand.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	export.AddCommand(csvCommand)
	return export
}

func newBackupCommand(options *rootOptions) *cobra.Command {
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Export, import and snapshot the whole state",
	}

	var output string
	exportCommand := &cobra.Command{
		Use:   "export",
		Short: "Write a full JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.withRuntime(func(rt *runtime) error {
				payload, err := rt.store.ExportBackup()
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, payload)
			})
		},
	}
	exportCommand.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")

	importCommand := &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Replace the whole state with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			return options.withRuntime(func(rt *runtime) error {
				if err := rt.store.ImportBackup(payload); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "backup imported")
				return nil
			})
		},
	}

	snapshotCommand := &cobra.Command{
		Use:   "snapshot",
		Short: "Take an automatic backup unless a recent one exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.withRuntime(func(rt *runtime) error {
				created, err := rt.store.CreateAutoBackupIfNeeded()
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "snapshot created")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "snapshot skipped: a recent one exists")
				}
				return nil
			})
		},
	}

	restoreCommand := &cobra.Command{
		Use:   "restore-latest",
		Short: "Replace the state with the newest automatic backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.withRuntime(func(rt *runtime) error {
				restored, err := rt.store.RestoreLatestAutoBackup()
				if err != nil {
					return err
				}
				if !restored {
					return fmt.Errorf("no automatic backup found in %s", rt.snapshots.Dir())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "latest snapshot restored")
				return nil
			})
		},
	}

	var revisionLimit int
	revisionsCommand := &cobra.Command{
		Use:   "revisions",
		Short: "List the most recent saves kept by the sqlite driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.withRuntime(func(rt *runtime) error {
				if rt.revisions == nil {
					return fmt.Errorf("storage driver %q keeps no revision history", rt.cfg.StorageDriver)
				}
				revisions, err := rt.revisions.Revisions(revisionLimit)
				if err != nil {
					return err
				}
				for _, revision := range revisions {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tschema %d\t%d bytes\n",
						revision.SavedAt.In(rt.cfg.Location()).Format(time.RFC3339), revision.SchemaVersion, revision.PayloadSize)
				}
				return nil
			})
		},
	}
	revisionsCommand.Flags().IntVarP(&revisionLimit, "limit", "n", 10, "number of saves to list")

	backup.AddCommand(exportCommand, importCommand, snapshotCommand, restoreCommand, revisionsCommand)
	return backup
}

func writeOutput(stdout io.Writer, path string, payload []byte) error {
	if path == "" {
		_, err := stdout.Write(payload)
		return err
	}
	if err := db.WriteFileAtomic(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

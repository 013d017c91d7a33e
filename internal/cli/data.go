package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/2beens/fittrack/internal/export"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// stdoutPath writes to the command output instead of a file
const stdoutPath = "-"

func (a *App) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "export json|csv",
		Short:     "Export all data as a JSON backup or a CSV sheet",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{formatJSON, formatCSV},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			service := export.NewService(a.tracker)

			path := output
			if path == "" {
				path = export.CSVFileName
				if args[0] == formatJSON {
					path = export.BackupFileName(a.tracker.Today())
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if path != stdoutPath {
				f, createErr := os.Create(path)
				if createErr != nil {
					return fmt.Errorf("create export file: %w", createErr)
				}
				defer func() {
					err = multierr.Append(err, f.Close())
				}()
				w = f
			}

			if args[0] == formatJSON {
				err = service.ExportJSON(cmd.Context(), w)
			} else {
				err = service.ExportCSV(cmd.Context(), w)
			}
			if err != nil {
				return err
			}
			if path != stdoutPath {
				fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: dated file name)")
	return cmd
}

func (a *App) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "import json|csv FILE",
		Short:     "Import a JSON backup (replaces data) or a CSV sheet (merges)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{formatJSON, formatCSV},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			service := export.NewService(a.tracker)
			switch args[0] {
			case formatJSON:
				if err := service.ImportJSON(cmd.Context(), f); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "backup imported")
			case formatCSV:
				imported, err := service.ImportCSV(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", imported)
			default:
				return fmt.Errorf("unknown import format: %s", args[0])
			}
			return nil
		},
	}
}

func (a *App) sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Replace the history with 30 days of random data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tracker.LoadSampleData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sample data loaded")
			return nil
		},
	}
}

func (a *App) clearCmd() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all exercises, history and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to clear all data without --yes")
			}
			if err := a.tracker.ClearAllData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm deleting all data")
	return cmd
}

func (a *App) usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the estimated storage size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usage, err := a.tracker.StorageUsage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bytes (%s KB, %s MB)\n", usage.Bytes, usage.KB, usage.MB)
			return nil
		},
	}
}

func (a *App) archiveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:         "archive",
		Short:       "Pack the file store directory into a .tar.gz",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			exists, err := pkg.PathExists(a.dataDir, true)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("data dir %s does not exist", a.dataDir)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create archive: %w", err)
			}
			defer func() {
				err = multierr.Append(err, f.Close())
			}()

			files, err := pkg.ArchiveDir(a.dataDir, f)
			if err != nil {
				return fmt.Errorf("archive data dir: %w", err)
			}
			log.Debugf("archived %d files from %s", files, a.dataDir)
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d files to %s\n", files, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "fittrack_data.tar.gz", "archive file")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var (
		generate int
		cost     int
	)
	cmd := &cobra.Command{
		Use:   "hash-password [PASSWORD]",
		Short: "Print the bcrypt hash for FITTRACK_ADMIN_PASSWORD_HASH",
		Long: `Print the bcrypt hash of the admin password, used by the service to guard
destructive routes. With --generate a random password is created and printed too.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			switch {
			case len(args) == 1:
				password = args[0]
			case generate > 0:
				var err error
				if password, err = pkg.GenerateRandomString(generate); err != nil {
					return fmt.Errorf("generate password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password: %s\n", password)
			default:
				return errors.New("pass a password or use --generate N")
			}

			hash, err := pkg.HashPasswordWithCost(password, cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\n", hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&generate, "generate", 0, "generate a random password of N characters")
	cmd.Flags().IntVar(&cost, "cost", pkg.PasswordHashCost, "bcrypt cost")
	return cmd
}

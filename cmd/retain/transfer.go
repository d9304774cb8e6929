package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/service/transfer"
	"github.com/hrygo/retain/store"
)

func newExportCommand(a *app) *cobra.Command {
	var out, kind string
	var tags []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export items and their schedules as JSON",
		Example: `  retain export --out deck.json
  retain export --kind mcq --tag go > go-mcq.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := transfer.ExportOptions{Tags: store.NormalizeTags(tags)}
			if kind != "" {
				k := store.Kind(strings.ToLower(kind))
				if !k.Valid() {
					return rerrors.InvalidArgument("unknown kind %q", kind)
				}
				opts.Kind = &k
			}

			doc, err := transfer.NewService(a.store).Export(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return transfer.WriteDocument(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(out)
			if err != nil {
				return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "failed to create export file")
			}
			if err := transfer.WriteDocument(f, doc); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return rerrors.Wrap(err, rerrors.ErrCodeInternal, "failed to write export file")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d items to %s.\n", doc.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&kind, "kind", "", `only items of this kind: "question", "challenge" or "mcq"`)
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "only items carrying every given tag")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var allowDuplicates bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import items from a JSON export",
		Long: `Import items from a JSON export, "-" reads stdin.

Schedules are restored exactly. Items whose prompt or title already exists
are skipped unless --allow-duplicates is given. Nothing is imported when any
entry is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "failed to open import file")
				}
				defer f.Close()
				r = f
			}

			doc, err := transfer.ReadDocument(r)
			if err != nil {
				return err
			}
			result, err := transfer.NewService(a.store).Import(cmd.Context(), doc, transfer.ImportOptions{AllowDuplicates: allowDuplicates, Today: a.today()})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%d questions, %d challenges, %d mcq), skipped %d duplicates.\n",
				result.Total(), result.Questions, result.Challenges, result.MCQs, result.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowDuplicates, "allow-duplicates", false, "import entries whose prompt or title already exists")
	return cmd
}

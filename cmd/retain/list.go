package main

import (
	"fmt"

	"github.com/spf13/cobra"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/plugin/filter"
)

func newDueCommand(a *app) *cobra.Command {
	var flags itemFilter

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the items due today in review order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := a.today()
			find, err := flags.findDue(today)
			if err != nil {
				return err
			}
			items, err := a.store.ListDueItems(cmd.Context(), find)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Nothing is due.")
				return nil
			}
			if err := printItemTable(out, items, today); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d items due.\n", len(items))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var flags itemFilter
	var expr, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Example: `  retain list --kind mcq --tag go
  retain list --filter 'ease_factor < 2.0 && !is_new'
  retain list --filter '"concurrency" in tags && days_overdue > 7'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			find, err := flags.findItem()
			if err != nil {
				return err
			}
			if search != "" {
				find.Search = &search
			}

			var match *filter.Filter
			if expr != "" {
				if match, err = filter.Compile(expr); err != nil {
					return err
				}
			}

			items, err := a.store.ListItems(cmd.Context(), find)
			if err != nil {
				return err
			}
			today := a.today()
			if match != nil {
				if items, err = match.Apply(items, today); err != nil {
					return rerrors.Wrap(err, rerrors.ErrCodeInvalidArgument, "failed to evaluate filter")
				}
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items.")
				return nil
			}
			return printItemTable(out, items, today)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&expr, "filter", "f", "", "CEL expression items must satisfy")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text in the prompt or title")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item with its answer and schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.store.GetItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return rerrors.NotFound("item", id)
			}
			printItem(cmd.OutOrStdout(), item, a.today(), a.location)
			return nil
		},
	}
}

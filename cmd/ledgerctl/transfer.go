package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/export"
)

// resolveCodec prefers an explicit --format, then the file extension, then CSV.
func resolveCodec(format, path string) (export.Codec, error) {
	f := export.CSV
	switch {
	case format != "":
		parsed, err := export.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		f = parsed
	case path != "":
		if parsed, err := export.FormatFromPath(path); err == nil {
			f = parsed
		}
	}
	return export.ForFormat(f)
}

func exportCmd(a *app) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all transactions as CSV, JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := resolveCodec(format, out)
			if err != nil {
				return err
			}
			txs, err := a.store().ListTransactions(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				return codec.Encode(cmd.OutOrStdout(), txs)
			}
			if err := export.WriteFile(out, codec, txs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(txs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv, json or yaml (default from --out extension, else csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add every transaction from a CSV, JSON or YAML file, or none if any is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := resolveCodec(format, args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			txs, err := codec.Decode(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			n, err := a.store().ImportTransactions(cmd.Context(), txs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv, json or yaml (default from file extension)")
	return cmd
}

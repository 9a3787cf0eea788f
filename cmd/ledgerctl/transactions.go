package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/core"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "List, add and remove transactions",
	}
	cmd.AddCommand(listTransactionsCmd(a))
	cmd.AddCommand(addTransactionCmd(a))
	cmd.AddCommand(removeTransactionCmd(a))
	return cmd
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		currentMonth bool
		typ          string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				txs []core.Transaction
				err error
			)
			if currentMonth {
				txs, err = a.store().CurrentMonthTransactions(cmd.Context())
			} else {
				txs, err = a.store().ListTransactions(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			if typ != "" {
				t := core.TransactionType(strings.ToLower(typ))
				if !t.IsValid() {
					return fmt.Errorf("invalid --type %q: must be expense or income", typ)
				}
				filtered := txs[:0]
				for _, tx := range txs {
					if tx.Type == t {
						filtered = append(filtered, tx)
					}
				}
				txs = filtered
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(txs)
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions found. Use 'ledgerctl tx add' to record one.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Type, tx.Amount, tx.Category, tx.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&currentMonth, "current-month", false, "only transactions dated this month")
	cmd.Flags().StringVar(&typ, "type", "", "filter by type (expense or income)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func addTransactionCmd(a *app) *cobra.Command {
	var (
		amount      string
		category    string
		description string
		date        string
		typ         string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  ledgerctl tx add --amount 12.50 --category Food --description lunch
  ledgerctl tx add --type income --amount 2500 --category Income --date 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			money, err := core.ParseAmount(amount)
			if err != nil {
				return core.NewValidationError("amount", err)
			}
			now := time.Now()
			d := core.NewDate(now.Year(), int(now.Month()), now.Day())
			if date != "" {
				if d, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			tx, err := a.store().AddTransaction(cmd.Context(), core.Transaction{
				Amount:      money,
				Category:    category,
				Description: description,
				Date:        d,
				Type:        core.TransactionType(strings.ToLower(typ)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s on %s (%s)\n", tx.Type, tx.Amount, tx.Category, tx.Date, tx.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&typ, "type", string(core.Expense), "expense or income")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func removeTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store().DeleteTransaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No transaction with id %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", args[0])
			return nil
		},
	}
}

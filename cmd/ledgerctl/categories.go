package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/core"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cat",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(addCategoryCmd(a))
	cmd.AddCommand(updateCategoryCmd(a))
	cmd.AddCommand(removeCategoryCmd(a))
	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				cats []core.Category
				err  error
			)
			if typ != "" {
				cats, err = a.store().CategoriesFor(cmd.Context(), core.TransactionType(strings.ToLower(typ)))
			} else {
				cats, err = a.store().ListCategories(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOLOR\tICON\tPROTECTED")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Color, c.Icon, c.Protected)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only categories usable for expense or income")
	return cmd
}

func addCategoryCmd(a *app) *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.store().AddCategory(cmd.Context(), core.Category{
				Name:  args[0],
				Color: core.NormalizeColor(color),
				Icon:  icon,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", fmt.Sprintf("one of %v (default %s)", core.Palette(), core.DefaultColor))
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func updateCategoryCmd(a *app) *cobra.Command {
	var name, color, icon string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.store().ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			var current *core.Category
			for i := range cats {
				if cats[i].ID == args[0] {
					current = &cats[i]
					break
				}
			}
			if current == nil {
				return fmt.Errorf("no category with id %s", args[0])
			}
			if cmd.Flags().Changed("name") {
				current.Name = name
			}
			if cmd.Flags().Changed("color") {
				current.Color = core.NormalizeColor(color)
			}
			if cmd.Flags().Changed("icon") {
				current.Icon = icon
			}
			if _, err := a.store().UpdateCategory(cmd.Context(), *current); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %s\n", current.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().StringVar(&icon, "icon", "", "new icon")
	return cmd
}

func removeCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a category; default categories are protected",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store().DeleteCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No category with id %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func constraintsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constraints",
		Short: "Inspect or change minimum-stock constraints",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored constraints in catalog order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := g.load()
				if err != nil {
					return err
				}
				d, err := build(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				cs, err := d.reconciler.Constraints(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CLASS\tCONSTRAINT")
				for _, c := range cs {
					fmt.Fprintf(tw, "%s\t%d\n", c.Class, c.Constraint)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "set <name> <value>",
			Short: "Set the minimum stock for a class",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("constraint must be an integer: %q", args[1])
				}
				cfg, err := g.load()
				if err != nil {
					return err
				}
				d, err := build(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if err := d.reconciler.UpdateConstraint(cmd.Context(), args[0], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", args[0], value)
				return nil
			},
		},
	)
	return cmd
}

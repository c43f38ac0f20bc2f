package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fadilmartias/project-evaluator/internal/dto"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

func newRubricsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubrics",
		Short: "Inspect and validate rubric definitions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the registered rubrics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := opts.registry()
				if err != nil {
					return err
				}
				out := make([]dto.RubricDTO, 0)
				for _, def := range reg.Definitions() {
					out = append(out, dto.FromRubric(def))
				}
				return opts.print(cmd.OutOrStdout(), out)
			},
		},
		&cobra.Command{
			Use:   "show <language>",
			Short: "Print a rubric with all of its rules",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := opts.registry()
				if err != nil {
					return err
				}
				def, ok := reg.Lookup(args[0])
				if !ok {
					return fmt.Errorf("no rubric for language %q (have: %s)", args[0], strings.Join(reg.Languages(), ", "))
				}
				return opts.print(cmd.OutOrStdout(), def.Snapshot())
			},
		},
		&cobra.Command{
			Use:   "validate <dir>",
			Short: "Check that every rubric file in a directory loads",
			Long: `Validate loads the built-in rubrics plus every *.yaml / *.yml file in
dir and reports the first configuration error found.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, err := rubric.Load(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %d rubrics valid: %s\n", len(reg.Languages()), strings.Join(reg.Languages(), ", "))
				return nil
			},
		},
	)
	return cmd
}

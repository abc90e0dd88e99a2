package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

// NewBuildCmd rebuilds the interaction pairs of complex structures.
func NewBuildCmd() *cobra.Command {
	var procs int
	cmd := &cobra.Command{
		Use:     "build-complex-interactions [pdb-code...]",
		Aliases: []string{"build"},
		Short:   "Compute receptor–transducer interactions of complex structures",
		Long: "Compute the receptor–transducer residue pairs of every complex structure,\n" +
			"or only of the given PDB codes, with a pool of --proc workers. A structure\n" +
			"that fails is reported and skipped; the run goes on.",
		Example: "  signprot build-complex-interactions --proc 8\n  signprot build-complex-interactions 3SN6 6DDE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if procs < 0 {
				return errors.New(errors.ErrCodeValidation, "--proc must not be negative")
			}
			if procs == 0 {
				procs = cliCtx.Config.Worker.Processes
			}
			deps, err := cliCtx.Deps(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := deps.Build(cmd.Context(), args, procs)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("Build finished",
				logging.Int("processed", summary.Processed),
				logging.Int("failed", summary.Failed))
			return PrintResult(cmd, summaryView{summary})
		},
	}
	cmd.Flags().IntVar(&procs, "proc", 0, "number of worker processes (default from config)")
	return cmd
}

type summaryView struct {
	*interaction.Summary
}

func (v summaryView) TableHeaders() []string {
	return []string{"STRUCTURE", "PDB", "CONTACTS", "PAIRS", "STATUS"}
}

func (v summaryView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Outcomes))
	for _, o := range v.Outcomes {
		status := "ok"
		switch {
		case o.Skipped:
			status = "skipped"
		case o.Err != nil:
			status = "failed: " + o.Err.Error()
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.StructureID, 10),
			o.PDBCode,
			strconv.Itoa(o.Contacts),
			strconv.FormatInt(o.Pairs, 10),
			status,
		})
	}
	return rows
}

func (v summaryView) Text() string {
	s := fmt.Sprintf("processed %d, failed %d, skipped %d, %d pairs written\n",
		v.Processed, v.Failed, v.Skipped, v.Pairs)
	for _, o := range v.Outcomes {
		if o.Err != nil {
			s += fmt.Sprintf("  %s (%d): %v\n", o.PDBCode, o.StructureID, o.Err)
		}
	}
	return s
}

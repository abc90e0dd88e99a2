package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
)

// defaultCLISession keys the stored signature between a signature run and
// a later match run from the command line.
const defaultCLISession = "cli"

type signatureOptions struct {
	entries      []string
	reference    []string
	segments     []string
	allPositions bool
	session      string
}

// NewSignatureCmd computes a signature and stores it under --session.
func NewSignatureCmd() *cobra.Command {
	opts := &signatureOptions{}
	cmd := &cobra.Command{
		Use:   "signature",
		Short: "Compute the feature signature of a receptor set",
		Long: "Compute the feature signature of --entries against --reference, or the\n" +
			"one-sided signature of --entries alone. The result is stored under --session\n" +
			"for a later match run.",
		Example: "  signprot signature --entries adrb2_human,adrb1_human --reference glp1r_human --segments TM3,TM6",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignature(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.entries, "entries", nil, "entry names of set A (required)")
	f.StringSliceVar(&opts.reference, "reference", nil, "entry names of set B; empty computes a one-sided signature")
	f.StringSliceVar(&opts.segments, "segments", nil, "segment slugs or generic-number labels")
	f.BoolVar(&opts.allPositions, "all-positions", false, "use every position of the numbering scheme")
	f.StringVar(&opts.session, "session", defaultCLISession, "session key the signature is stored under")
	_ = cmd.MarkFlagRequired("entries")
	return cmd
}

func runSignature(cmd *cobra.Command, opts *signatureOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	deps, err := cliCtx.Deps(cmd.Context())
	if err != nil {
		return err
	}
	res, err := deps.Signature.Compute(cmd.Context(), opts.session, &signature.ComputeInput{
		EntryNames:          opts.entries,
		ReferenceEntryNames: opts.reference,
		Segments:            opts.segments,
		AllPositions:        opts.allPositions,
	})
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("Signature computed",
		logging.String("session", opts.session),
		logging.Int("positions", res.Positions))
	return PrintResult(cmd, signatureView{res})
}

type signatureView struct {
	*signature.ComputeResult
}

func (v signatureView) TableHeaders() []string {
	return []string{"SEGMENT", "POSITION", "FEATURE", "VALUE", "A", "B", "CONSENSUS"}
}

func (v signatureView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.FeatUngrouped))
	for _, p := range v.FeatUngrouped {
		rows = append(rows, []string{
			p.Segment,
			p.Label,
			string(p.Dominant),
			strconv.FormatFloat(p.DominantValue, 'f', 0, 64),
			strconv.Itoa(p.ContributorsA),
			strconv.Itoa(p.ContributorsB),
			p.ConsensusAA,
		})
	}
	return rows
}

func (v signatureView) Text() string {
	var sb strings.Builder
	kind := "differential"
	if v.OneSided {
		kind = "one-sided"
	}
	fmt.Fprintf(&sb, "%s signature over %d positions (%s)\n", kind, v.Positions, strings.Join(v.Segments, ", "))
	fmt.Fprintf(&sb, "set A: %s\n", strings.Join(v.Receptors, ", "))
	if len(v.ReferenceReceptors) > 0 {
		fmt.Fprintf(&sb, "set B: %s\n", strings.Join(v.ReferenceReceptors, ", "))
	}
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	return sb.String()
}

type matchOptions struct {
	entries  []string
	cutoff   float64
	mode     string
	family   string
	particle string
	session  string
}

// NewMatchCmd scores receptors against the signature stored under --session.
func NewMatchCmd() *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:     "match",
		Short:   "Score receptors against the stored signature",
		Example: "  signprot match --entries adrb2_human,adrb1_human,glp1r_human --cutoff 0.4 --mode differential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.entries, "entries", nil, "candidate entry names (required)")
	f.Float64Var(&opts.cutoff, "cutoff", 0, "minimum |value| fraction in [0,1]; unset uses the configured default")
	f.StringVar(&opts.mode, "mode", "", "match mode (differential, onesided)")
	f.StringVar(&opts.family, "family", "", "reference family slug; empty derives it from set A")
	f.StringVar(&opts.particle, "particle", "", "filtering particle recorded with the parameters")
	f.StringVar(&opts.session, "session", defaultCLISession, "session key the signature was stored under")
	_ = cmd.MarkFlagRequired("entries")
	return cmd
}

func runMatch(cmd *cobra.Command, opts *matchOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	deps, err := cliCtx.Deps(cmd.Context())
	if err != nil {
		return err
	}
	input := &signature.MatchInput{
		EntryNames:        opts.entries,
		Mode:              opts.mode,
		Family:            opts.family,
		FilteringParticle: opts.particle,
	}
	if cmd.Flags().Changed("cutoff") {
		c := opts.cutoff
		input.Cutoff = &c
	}
	res, err := deps.Signature.Match(cmd.Context(), opts.session, input)
	if err != nil {
		return err
	}
	return PrintResult(cmd, matchView{res})
}

type matchView struct {
	*signature.MatchResult
}

func (v matchView) TableHeaders() []string {
	return []string{"ENTRY", "NAME", "FAMILY", "SPECIES", "SCORE", "NORMALIZED", "REF"}
}

func (v matchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Proteins))
	for _, p := range v.Proteins {
		ref := ""
		if p.ReferenceFamily {
			ref = "*"
		}
		rows = append(rows, []string{
			p.EntryName,
			p.Name,
			p.Family,
			p.Species,
			strconv.FormatFloat(p.Score, 'f', 2, 64),
			strconv.FormatFloat(p.NormalizedScore, 'f', 1, 64),
			ref,
		})
	}
	return rows
}

func (v matchView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s match, cutoff %.2f, %d consensus positions, reference family %s\n",
		v.Mode, v.Cutoff, len(v.Consensus), orDash(v.ReferenceFamily))
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/spelling"
	"github.com/agentic-research/faultcat/internal/stats"
)

var (
	spellDryRun bool
	spellReport string
)

var spellcheckCmd = &cobra.Command{
	Use:   "spellcheck DIR",
	Short: "Correct common spelling mistakes in the French files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		rep, err := spelling.New(run.cfg.Project.Spelling).Run(store, api.French, spellDryRun)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range rep.Corrections {
			fmt.Fprintf(out, "%s[%d]: ", c.File, c.Index)
			warnf(out, "%q", c.Before)
			fmt.Fprint(out, " -> ")
			okf(out, "%q\n", c.After)
		}
		verb := "modified"
		if spellDryRun {
			verb = "would be modified"
		}
		fmt.Fprintf(out, "%d corrections, %d of %d files %s\n", len(rep.Corrections), len(rep.Modified), rep.Files, verb)
		if spellReport != "" {
			if err := os.WriteFile(spellReport, []byte(rep.Markdown()), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			okf(out, "report written to %s\n", spellReport)
		}
		return reportErrors(out, rep.Errors)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats DIR",
	Short: "Count files, entries and empty descriptions per language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		st, err := stats.Compute(store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		headf(out, "%s file sets, max depth %d\n", humanize.Comma(int64(st.Sets)), st.MaxDepth)
		for _, lang := range api.Languages {
			l := st.ByLang[lang]
			fmt.Fprintf(out, "  %-8s %6s files %8s entries %6s empty %6s expandable  avg %.1f chars\n",
				lang.Name(), humanize.Comma(int64(l.Files)), humanize.Comma(int64(l.Entries)),
				humanize.Comma(int64(l.Empty)), humanize.Comma(int64(l.Expandable)), l.AverageLength())
		}
		depths := lo.Keys(st.ByDepth)
		sort.Ints(depths)
		for _, d := range depths {
			fmt.Fprintf(out, "  level %d: %s entries\n", d, humanize.Comma(int64(st.ByDepth[d])))
		}
		if st.Unread > 0 {
			warnf(out, "%d files could not be read\n", st.Unread)
		}
		return nil
	},
}

func init() {
	spellcheckCmd.Flags().BoolVar(&spellDryRun, "dry-run", false, "Report corrections without writing")
	spellcheckCmd.Flags().StringVar(&spellReport, "report", "", "Write a markdown report to this file")
	rootCmd.AddCommand(spellcheckCmd, statsCmd)
}

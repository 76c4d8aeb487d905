package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/coherence"
	"github.com/agentic-research/faultcat/internal/diagnose"
)

var (
	checkFix   bool
	checkQuick bool
)

var checkCmd = &cobra.Command{
	Use:   "check DIR",
	Short: "Check that the language files of each fault code agree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		rep, err := coherence.New(store).Check(coherence.Options{Fix: checkFix, Quick: checkQuick})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, sev := range coherence.Severities {
			n := rep.Count(sev)
			if n == 0 || (sev == coherence.Warning && !verbose) {
				continue
			}
			headf(out, "%s (%d)\n", sev, n)
			for _, is := range rep.Issues {
				if is.Severity != sev {
					continue
				}
				line := "  " + is.String()
				if verbose {
					line += " [" + is.Kind + "]"
				}
				if sev == coherence.Critical {
					errorf(out, "%s\n", line)
				} else {
					warnf(out, "%s\n", line)
				}
			}
		}
		fmt.Fprintf(out, "%d file sets, %d files: %s\n", rep.Sets, rep.Files, rep.Summary())
		if rep.Fixed > 0 {
			okf(out, "%d headers fixed\n", rep.Fixed)
			warnf(out, "run `faultcat check %s` again to verify the fixes\n", args[0])
		}
		if !rep.OK() {
			return errFailures
		}
		okf(out, "catalog is coherent\n")
		return nil
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose DIR",
	Short: "List target descriptions that look untranslated, suspicious or in the wrong language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		det, err := detector(run.cfg)
		if err != nil {
			return err
		}
		src, err := run.cfg.Source()
		if err != nil {
			return err
		}
		rep, err := diagnose.Run(store, src, det)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		byLang := make(map[api.Language]int)
		for _, f := range rep.Findings {
			byLang[f.Lang]++
			warnf(out, "%s\n", f)
		}
		for _, lang := range src.Others() {
			fmt.Fprintf(out, "%s: %d findings\n", lang.Name(), byLang[lang])
		}
		fmt.Fprintf(out, "%d source files checked\n", rep.Files)
		if err := reportErrors(out, rep.Errors); err != nil {
			return err
		}
		if len(rep.Findings) > 0 {
			return errFailures
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "Rewrite wrong header metadata in place")
	checkCmd.Flags().BoolVar(&checkQuick, "quick", false, "Stop at the first file set with errors")
	rootCmd.AddCommand(checkCmd, diagnoseCmd)
}

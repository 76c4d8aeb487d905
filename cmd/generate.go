package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/internal/generate"
	"github.com/agentic-research/faultcat/internal/syncer"
)

var (
	generateYes      bool
	generateChildren bool
)

var generateCmd = &cobra.Command{
	Use:   "generate DIR",
	Short: "Create missing language files by translating an existing sibling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		sets, err := store.Scan()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		missing := generate.FindMissing(sets)
		targets := lo.FlatMap(missing, func(m generate.Missing, _ int) []string { return m.Targets() })

		// child files need no translation, only targets need a syncer
		var s *syncer.Syncer
		if len(targets) > 0 {
			if s, err = newSyncer(store); err != nil {
				return err
			}
		}
		g := generate.New(store, s)
		var plans []generate.ChildPlan
		if generateChildren {
			if plans, err = g.FindMissingChildren(sets); err != nil {
				return err
			}
		}
		children := lo.FlatMap(plans, func(p generate.ChildPlan, _ int) []string { return p.Names() })

		if len(targets) == 0 && len(children) == 0 {
			okf(out, "nothing to generate\n")
			return nil
		}
		for _, m := range missing {
			headf(out, "%s from %s\n", m.Set.Base(), m.SourceName())
			for _, t := range m.Targets() {
				fmt.Fprintf(out, "  + %s\n", t)
			}
		}
		for _, p := range plans {
			headf(out, "%s entry %d has no child files\n", p.Parent.Base(), p.Index)
			for _, n := range p.Names() {
				fmt.Fprintf(out, "  + %s\n", n)
			}
		}

		if !generateYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Create %d files", len(targets)+len(children)),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					warnf(out, "aborted\n")
					return nil
				}
				return err
			}
		}

		if len(children) > 0 {
			created, err := g.CreateChildren(plans)
			okf(out, "%d empty child files created\n", len(created))
			if err != nil {
				return err
			}
		}
		if len(targets) == 0 {
			return nil
		}

		ctx, cancel := signalContext()
		defer cancel()
		res, err := g.Generate(ctx, missing, progress(cmd.ErrOrStderr(), "generate"))
		if res != nil {
			okf(out, "%d of %d files created\n", len(res.Created), len(targets))
		}
		if err != nil {
			return err
		}
		return reportErrors(out, res.Errors)
	},
}

func init() {
	generateCmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Do not ask for confirmation")
	generateCmd.Flags().BoolVar(&generateChildren, "children", false, "Also create empty files for expandable entries without children")
	rootCmd.AddCommand(generateCmd)
}

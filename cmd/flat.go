package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/flat"
)

var (
	flatSource string
	flatDryRun bool
)

var flatCmd = &cobra.Command{
	Use:   "flat FR EN ES",
	Short: "Fill missing values of flat key to text translation files",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := api.ParseLanguage(flatSource)
		if err != nil {
			return err
		}
		files := make(map[api.Language]string, len(api.Languages))
		for i, lang := range api.Languages {
			abs, err := filepath.Abs(args[i])
			if err != nil {
				return err
			}
			files[lang] = abs
		}
		set, err := flat.Load(osfs.New("/"), files)
		if err != nil {
			return err
		}
		det, err := detector(run.cfg)
		if err != nil {
			return err
		}
		tr, err := newTranslator(run.cfg)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := set.Translate(ctx, tr, det, src)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d keys: %d translated, %d copied, %d failed\n", len(set.Keys), res.Translated, res.Copied, res.Failed)
		if !flatDryRun && res.Translated+res.Copied > 0 {
			if err := set.Save(); err != nil {
				return err
			}
			okf(out, "files saved\n")
		}
		if res.Failed > 0 {
			return errFailures
		}
		return nil
	},
}

func init() {
	flatCmd.Flags().StringVar(&flatSource, "source", string(api.French), "Source language")
	flatCmd.Flags().BoolVar(&flatDryRun, "dry-run", false, "Translate without saving")
	rootCmd.AddCommand(flatCmd)
}

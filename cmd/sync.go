package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/syncer"
)

var (
	syncForce  bool
	syncDryRun bool
	syncRoot   string
	syncSource string
)

var syncOneCmd = &cobra.Command{
	Use:   "sync-one FILE",
	Short: "Bring the other languages of one catalog file in line with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		root := syncRoot
		if root == "" {
			root = filepath.Dir(file)
		}
		name, err := filepath.Rel(root, file)
		if err != nil {
			return fmt.Errorf("%s is not under %s: %w", file, root, err)
		}
		store, err := openStore(root)
		if err != nil {
			return err
		}
		s, err := newSyncer(store)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := s.SyncFile(ctx, filepath.ToSlash(name), syncer.Options{Force: syncForce, DryRun: syncDryRun})
		out := cmd.OutOrStdout()
		if res != nil {
			printFileResult(out, res)
		}
		if err != nil {
			return err
		}
		if res.Failed() > 0 {
			errorf(out, "%d entries could not be translated\n", res.Failed())
			return errFailures
		}
		return nil
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all DIR",
	Short: "Sync every source language file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		src, err := run.cfg.Source()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("source") {
			if src, err = api.ParseLanguage(syncSource); err != nil {
				return err
			}
		}
		s, err := newSyncer(store)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		opts := syncer.Options{Force: syncForce, DryRun: syncDryRun, Progress: progress(cmd.ErrOrStderr(), "sync")}
		sum, err := s.SyncDir(ctx, src, opts)
		if sum != nil {
			if verbose {
				for _, r := range sum.Results {
					printFileResult(out, r)
				}
			}
			headf(out, "%s files, %s succeeded, %s failed, %s changes\n",
				humanize.Comma(int64(sum.Files)), humanize.Comma(int64(sum.Succeeded)),
				humanize.Comma(int64(sum.Failed)), humanize.Comma(int64(sum.Changes)))
		}
		if err != nil {
			return err
		}
		return reportErrors(out, sum.Errors)
	},
}

func printFileResult(w io.Writer, res *syncer.FileResult) {
	headf(w, "%s (%s)\n", res.Source, res.Lang.Name())
	for _, t := range res.Targets {
		status := "unchanged"
		switch {
		case t.Written && t.Created:
			status = "created"
		case t.Written:
			status = "updated"
		case t.Created:
			status = "would create"
		case t.Changes() > 0:
			status = "would change"
		}
		line := fmt.Sprintf("  %s %s: %s, %d translated, %d copied, %d cleared, %d structural",
			t.Lang, t.File, status, t.Translated, t.Copied, t.Cleared, t.Structural)
		switch {
		case t.Failed > 0:
			errorf(w, "%s, %d failed\n", line, t.Failed)
		case t.Flagged > 0:
			warnf(w, "%s, %d flagged\n", line, t.Flagged)
		default:
			okf(w, "%s\n", line)
		}
	}
}

func init() {
	for _, c := range []*cobra.Command{syncOneCmd, syncAllCmd} {
		c.Flags().BoolVarP(&syncForce, "force", "f", false, "Retranslate every description")
		c.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report changes without writing")
		rootCmd.AddCommand(c)
	}
	syncOneCmd.Flags().StringVar(&syncRoot, "root", "", "Catalog root to look for sibling files (default: the file's directory)")
	syncAllCmd.Flags().StringVar(&syncSource, "source", "fr", "Source language")
}

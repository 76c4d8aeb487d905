package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/export"
	"github.com/agentic-research/faultcat/internal/query"
	"github.com/agentic-research/faultcat/internal/tree"
)

var exportCmd = &cobra.Command{
	Use:   "export DIR OUT.db",
	Short: "Write the catalog to a SQLite database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		start := time.Now()
		t, err := tree.Build(store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, n := range t.Dangling() {
			warnf(out, "%s is expandable but has no child file\n", n.ID)
		}
		fmt.Fprintf(out, "Building %s from %s...\n", args[1], args[0])
		n, err := export.Export(t, args[1])
		if err != nil {
			return err
		}
		if info, err := os.Stat(args[1]); err == nil {
			okf(out, "%s rows, %s, done in %v\n", humanize.Comma(int64(n)), humanize.Bytes(uint64(info.Size())), time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import DB DIR",
	Short: "Rebuild catalog files from a database written by export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(args[1], 0o755); err != nil {
			return err
		}
		store, err := catalog.Open(args[1])
		if err != nil {
			return err
		}
		written, err := export.Import(args[0], store)
		out := cmd.OutOrStdout()
		if verbose {
			for _, name := range written {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
		if err != nil {
			return err
		}
		okf(out, "%d files written to %s\n", len(written), args[1])
		return nil
	},
}

var queryLang string

var queryCmd = &cobra.Command{
	Use:   "query DIR JSONPATH",
	Short: "Evaluate a JSONPath expression against every catalog file",
	Example: `  faultcat query ./catalog '$.FaultDetailList[?(@.IsExpandable == true)].Description'
  faultcat query ./catalog '$.Header.LinkedVariable' --lang en`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		var lang api.Language
		if queryLang != "" {
			if lang, err = api.ParseLanguage(queryLang); err != nil {
				return err
			}
		}
		matches, errs, err := query.Run(store, args[1], lang)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range matches {
			fmt.Fprintln(out, m.String())
		}
		if verbose {
			fmt.Fprintf(out, "%d matches\n", len(matches))
		}
		return reportErrors(cmd.ErrOrStderr(), errs)
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryLang, "lang", "", "Only query files of this language")
	rootCmd.AddCommand(exportCmd, importCmd, queryCmd)
}

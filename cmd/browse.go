package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/navigator"
)

var (
	navPath  string
	navLang  string
	editIdx  int
	editDesc string
	editExp  bool
)

func navTarget() (codepath.Path, api.Language, error) {
	lang, err := api.ParseLanguage(navLang)
	if err != nil {
		return codepath.Path{}, "", err
	}
	p, err := codepath.ParseList(navPath)
	return p, lang, err
}

var browseCmd = &cobra.Command{
	Use:   "browse DIR",
	Short: "Print the columns from the top file down to a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		p, lang, err := navTarget()
		if err != nil {
			return err
		}
		cols, err := navigator.New(store, nil).Columns(p, lang)
		out := cmd.OutOrStdout()
		for _, c := range cols {
			printColumn(out, c)
		}
		if errors.Is(err, catalog.ErrNotFound) && len(cols) > 0 {
			warnf(out, "%v\n", err)
			return nil
		}
		return err
	},
}

func printColumn(w io.Writer, c navigator.Column) {
	headf(w, "level %d  %s\n", c.Level, c.Filename)
	for _, e := range c.Entries {
		mark := "  "
		if e.Index == c.Selected {
			mark = "> "
		}
		open := ""
		if e.Expandable {
			open = " +"
		}
		line := fmt.Sprintf("%s%-10s %s%s", mark, e.Code, e.Description, open)
		if e.Index == c.Selected {
			okf(w, "%s\n", line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
}

var searchCmd = &cobra.Command{
	Use:   "search DIR QUERY",
	Short: "Find descriptions containing a text, ignoring case and accents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		lang, err := api.ParseLanguage(navLang)
		if err != nil {
			return err
		}
		hits, err := navigator.New(store, nil).Search(args[1], lang)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, h := range hits {
			fmt.Fprintf(out, "%-12s %s  ", h.Code, h.Description)
			headf(out, "%s\n", h.File)
		}
		fmt.Fprintf(out, "%d matches\n", len(hits))
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit DIR",
	Short: "Change the description or expandable flag of one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args[0])
		if err != nil {
			return err
		}
		p, lang, err := navTarget()
		if err != nil {
			return err
		}
		e := navigator.Edit{Path: p, Lang: lang, Index: editIdx}
		if cmd.Flags().Changed("description") {
			e.Description = &editDesc
		}
		if cmd.Flags().Changed("expandable") {
			e.Expandable = &editExp
		}
		if e.Description == nil && e.Expandable == nil {
			return errors.New("nothing to change: give --description or --expandable")
		}
		res, err := navigator.New(store, run.changes).Apply(e)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !res.Changed {
			fmt.Fprintf(out, "%s[%d] already up to date\n", res.File, editIdx)
			return nil
		}
		okf(out, "%s[%d] updated\n", res.File, editIdx)
		for _, f := range res.Propagated {
			okf(out, "  flag copied to %s\n", f)
		}
		return nil
	},
}

func init() {
	root := codepath.Root.String()
	for _, c := range []*cobra.Command{browseCmd, searchCmd, editCmd} {
		c.Flags().StringVar(&navLang, "lang", string(api.French), "Language: fr, en or es")
		rootCmd.AddCommand(c)
	}
	browseCmd.Flags().StringVar(&navPath, "path", root, "Comma separated level IDs")
	editCmd.Flags().StringVar(&navPath, "path", root, "Comma separated level IDs of the file")
	editCmd.Flags().IntVar(&editIdx, "index", 0, "Entry index")
	editCmd.Flags().StringVar(&editDesc, "description", "", "New description")
	editCmd.Flags().BoolVar(&editExp, "expandable", false, "New expandable flag")
	_ = editCmd.MarkFlagRequired("index")
}

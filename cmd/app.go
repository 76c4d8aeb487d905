package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/config"
	"github.com/agentic-research/faultcat/internal/detect"
	"github.com/agentic-research/faultcat/internal/syncer"
	"github.com/agentic-research/faultcat/internal/translate"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan, color.Bold)
)

func okf(w io.Writer, format string, a ...any)   { _, _ = okColor.Fprintf(w, format, a...) }
func warnf(w io.Writer, format string, a ...any) { _, _ = warnColor.Fprintf(w, format, a...) }
func errorf(w io.Writer, format string, a ...any) { _, _ = errColor.Fprintf(w, format, a...) }
func headf(w io.Writer, format string, a ...any) { _, _ = headColor.Fprintf(w, format, a...) }

// newTranslator builds the translation chain. Tests replace it.
var newTranslator = func(cfg *config.Config) (translate.Translator, error) {
	return translate.New(cfg)
}

func openStore(dir string) (*catalog.Store, error) {
	return catalog.Open(dir)
}

func detector(cfg *config.Config) (*detect.Detector, error) {
	return detect.New(cfg.Project.TechnicalPatterns, cfg.Project.SuspiciousPhrases)
}

// newSyncer wires a syncer for store from the run configuration.
func newSyncer(store *catalog.Store) (*syncer.Syncer, error) {
	det, err := detector(run.cfg)
	if err != nil {
		return nil, err
	}
	tr, err := newTranslator(run.cfg)
	if err != nil {
		return nil, err
	}
	return syncer.New(store, tr, det, run.changes), nil
}

// progress returns a callback driving a bar on w. The bar is created on the
// first call, once the total is known.
func progress(w io.Writer, label string) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", label)),
				progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
		}
		_ = bar.Set(done)
	}
}

// reportErrors prints errs and returns errFailures when there are any.
func reportErrors(w io.Writer, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		errorf(w, "  %v\n", err)
	}
	return errFailures
}

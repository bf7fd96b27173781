// Command foldview is a terminal viewer for foldframe designs. Arrow keys
// change the fold angle; beams in collision are drawn red.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/foldframe/internal/config"
	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/internal/store"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/gdamore/tcell/v2"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "foldview:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("foldview", flag.ContinueOnError)
	scans := fs.String("scans", "", "scan cache database (default: user cache dir)")
	noCache := fs.Bool("no-cache", false, "do not persist closing scans")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: foldview [flags] <design.fold|design.yaml>")
	}

	// The terminal belongs to the viewer; logs only go to FOLD_LOG_FILE.
	opts := applog.FromEnv()
	opts.Writer = io.Discard
	applog.Init(opts)

	searcher := search.New()
	if !*noCache {
		path := *scans
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()
		searcher.Scans = search.NewMemoryCache(st)
	}

	d, err := config.LoadDesign(fs.Arg(0), engine.NewEngineWith(searcher))
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	v := NewViewer(screen, d, searcher)
	for {
		v.Draw()
		ev := screen.PollEvent()
		if ev == nil || !v.HandleEvent(ev) {
			return nil
		}
	}
}

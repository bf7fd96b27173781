// Command foldframe evaluates, solves and exports deployable scissor
// structures described by design programs (.fold) or YAML documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/chazu/foldframe/internal/config"
	"github.com/chazu/foldframe/internal/export"
	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/internal/store"
	"github.com/chazu/foldframe/internal/version"
	"github.com/chazu/foldframe/pkg/bom"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/tessellate"
	"github.com/chazu/foldframe/pkg/vec"
)

const usage = `usage: foldframe [global flags] <command> [flags] [design]

commands:
  solve      fold a design and print a summary with collisions
  closed     print the fold angle at which a ring closes
  safe       print the nearest collision-free fold angle
  bom        print the bill of materials
  pdf        write a PDF sheet
  png        write a PNG preview in plan or elevation
  mesh       write tessellated meshes as JSON
  validate   check a design
  eval       evaluate design source from stdin and print the JSON result
  convert    write a design as a YAML document
  scans      manage the closing-scan cache (purge)
  version    print the version

global flags:
`

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "foldframe:", err)
	}
	os.Exit(code)
}

// cli carries the state shared by subcommands.
type cli struct {
	app    *App
	scans  *store.ScanStore
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("foldframe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "YAML document supplying logging settings")
	scansPath := fs.String("scans", "", "closing-scan cache database (default: user cache dir)")
	noCache := fs.Bool("no-cache", false, "keep closing scans in memory only")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 2, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2, nil
	}

	doc, err := config.Load(*configPath)
	if err != nil {
		return 1, err
	}
	logOpts := doc.Logging
	logOpts.Writer = stderr
	applog.Init(logOpts)

	c := &cli{stdin: stdin, stdout: stdout}
	searcher := search.New()
	if !*noCache {
		st, err := openScans(*scansPath)
		if err != nil {
			applog.WithComponent("cli").Warn("scan cache unavailable", slog.Any("err", err))
		} else {
			defer st.Close()
			c.scans = st
			searcher.Scans = search.NewMemoryCache(st)
		}
	}
	c.app = NewAppWith(searcher)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "solve":
		err = c.solve(rest)
	case "closed":
		err = c.closed(rest)
	case "safe":
		err = c.safe(rest)
	case "bom":
		err = c.bom(rest)
	case "pdf":
		err = c.pdf(rest)
	case "png":
		err = c.png(rest)
	case "mesh":
		err = c.mesh(rest)
	case "validate":
		err = c.validate(rest)
	case "eval":
		err = c.eval(rest)
	case "convert":
		err = c.convert(rest)
	case "scans":
		err = c.scansCmd(rest)
	case "version":
		fmt.Fprintln(stdout, version.String())
	default:
		fs.Usage()
		return 2, fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

func openScans(path string) (*store.ScanStore, error) {
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return store.Open(path)
}

// designFlags parses flags common to commands that take one design.
type designFlags struct {
	fs   *flag.FlagSet
	fold *float64
}

func newDesignFlags(name string) *designFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &designFlags{fs: fs, fold: fs.Float64("fold", 0, "override the fold angle in degrees")}
}

func (c *cli) load(df *designFlags, args []string) (*engine.Design, error) {
	if err := df.fs.Parse(args); err != nil {
		return nil, err
	}
	if df.fs.NArg() != 1 {
		return nil, fmt.Errorf("%s: expected one design file", df.fs.Name())
	}
	d, err := config.LoadDesign(df.fs.Arg(0), c.app.engine)
	if err != nil {
		return nil, err
	}
	if *df.fold != 0 {
		d.Fold, d.HasFold = vec.Rad(*df.fold), true
	}
	return d, nil
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) solve(args []string) error {
	df := newDesignFlags("solve")
	asJSON := df.fs.Bool("json", false, "print JSON")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	s, err := c.app.Solve(d)
	if err != nil {
		return err
	}
	sum := s.Summary()
	if *asJSON {
		return c.writeJSON(struct {
			*Summary
			Collisions any `json:"collisions"`
		}{sum, s.Collisions})
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "mode\t%s\n", sum.Mode)
	fmt.Fprintf(tw, "modules\t%d x %d\n", sum.Modules, sum.Copies)
	fmt.Fprintf(tw, "fold\t%.3f deg\n", sum.FoldDegrees)
	fmt.Fprintf(tw, "rotation\t%.3f deg\n", sum.RotationDegrees)
	fmt.Fprintf(tw, "parts\t%d beams, %d brackets, %d bolts, %d panels\n", sum.Beams, sum.Brackets, sum.Bolts, sum.Panels)
	fmt.Fprintf(tw, "size\tradius %.1f mm, height %.1f mm\n", sum.MaxRadius, sum.MaxHeight)
	fmt.Fprintf(tw, "collisions\t%d\n", len(s.Collisions))
	for _, r := range s.Collisions {
		fmt.Fprintf(tw, "\t%s\n", r)
	}
	return tw.Flush()
}

func (c *cli) closed(args []string) error {
	df := newDesignFlags("closed")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	a, ok := c.app.searcher.FindOptimalClosedAngle(d.Config, d.FoldOr(vec.Rad(engine.DefaultFoldDegrees)))
	if !ok {
		return fmt.Errorf("no closing angle for %d modules", d.Config.Modules)
	}
	fmt.Fprintf(c.stdout, "%.4f\n", vec.Deg(a))
	return nil
}

func (c *cli) safe(args []string) error {
	df := newDesignFlags("safe")
	previous := df.fs.Float64("previous", 0, "angle the structure is moving from, in degrees")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	target := d.FoldOr(vec.Rad(engine.DefaultFoldDegrees))
	prev := target
	if *previous != 0 {
		prev = vec.Rad(*previous)
	}
	a, ok := c.app.searcher.FindSafeFoldAngle(d.Config, target, prev)
	if !ok {
		return fmt.Errorf("no collision-free angle within %.0f deg of %.2f deg", vec.Deg(search.SafeRange), vec.Deg(target))
	}
	fmt.Fprintf(c.stdout, "%.4f\n", vec.Deg(a))
	return nil
}

func (c *cli) bill(d *engine.Design) (*Solved, bom.Bill, error) {
	s, err := c.app.Solve(d)
	if err != nil {
		return nil, bom.Bill{}, err
	}
	return s, bom.Build(s.Geometry, s.Panels, d.Costs), nil
}

func (c *cli) bom(args []string) error {
	df := newDesignFlags("bom")
	asJSON := df.fs.Bool("json", false, "print JSON")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	_, bill, err := c.bill(d)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.writeJSON(bill)
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "item\tqty\tlength mm\tunit %s\ttotal %s\t\n", bill.Currency, bill.Currency)
	for _, l := range bill.Lines {
		length := ""
		if l.Length > 0 {
			length = fmt.Sprintf("%.0f", l.Length)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%.2f\t\n", l.Item, l.Quantity, length, l.UnitCost, l.Total)
	}
	fmt.Fprintf(tw, "total\t\t%.2f m\t\t%.2f\t\n", bom.BeamLength(bill), bill.Total)
	return tw.Flush()
}

func (c *cli) pdf(args []string) error {
	df := newDesignFlags("pdf")
	out := df.fs.String("o", "structure.pdf", "output file")
	only := df.fs.Int("copy", -1, "draw one array copy")
	r, err := c.report(df, args)
	if err != nil {
		return err
	}
	opt := export.DefaultPDFOptions()
	opt.Copy = *only
	if err := export.ExportPDF(*out, r, opt); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, *out)
	return nil
}

func (c *cli) png(args []string) error {
	df := newDesignFlags("png")
	out := df.fs.String("o", "structure.png", "output file")
	only := df.fs.Int("copy", -1, "draw one array copy")
	view := df.fs.String("view", "elevation", "plan or elevation")
	width := df.fs.Int("width", 1200, "image width in pixels")
	height := df.fs.Int("height", 800, "image height in pixels")
	r, err := c.report(df, args)
	if err != nil {
		return err
	}
	opt := export.DefaultPNGOptions()
	opt.Copy = *only
	opt.Width, opt.Height = *width, *height
	switch *view {
	case "plan":
		opt.View = export.Plan
	case "elevation":
		opt.View = export.Elevation
	default:
		return fmt.Errorf("unknown view %q", *view)
	}
	if err := export.ExportPNG(*out, r, opt); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, *out)
	return nil
}

// report solves and costs the design named by args for the exporters.
func (c *cli) report(df *designFlags, args []string) (export.Report, error) {
	d, err := c.load(df, args)
	if err != nil {
		return export.Report{}, err
	}
	s, bill, err := c.bill(d)
	if err != nil {
		return export.Report{}, err
	}
	title := d.Name
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(df.fs.Arg(0)), ".fold")
	}
	return export.Report{
		Title:      title,
		Config:     d.Config,
		Geometry:   s.Geometry,
		Panels:     s.Panels,
		Bill:       bill,
		Collisions: s.Collisions,
	}, nil
}

func (c *cli) mesh(args []string) error {
	df := newDesignFlags("mesh")
	out := df.fs.String("o", "", "output file (default stdout)")
	only := df.fs.Int("copy", -1, "tessellate one array copy")
	holes := df.fs.Bool("holes", false, "drill bolt holes through brackets")
	noBolts := df.fs.Bool("no-bolts", false, "skip bolts")
	kernelBeams := df.fs.Bool("kernel-beams", false, "mesh beams through the solid kernel")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}

	opts := tessellate.DefaultOptions()
	opts.Copy = *only
	opts.Bolts = !*noBolts
	opts.KernelBeams = *kernelBeams
	if *holes {
		opts.HoleDiameter = d.Config.Bolt.Diameter
	}
	result := c.app.Render(d, opts)
	if len(result.Errors) > 0 {
		return errors.New(result.Errors[0].Message)
	}

	if *out == "" {
		return c.writeJSON(result)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create mesh file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(result); err != nil {
		_ = f.Close()
		return fmt.Errorf("write meshes: %w", err)
	}
	return f.Close()
}

func (c *cli) validate(args []string) error {
	df := newDesignFlags("validate")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	res := structure.Validate(d.Config)
	for _, w := range res.Warnings {
		fmt.Fprintln(c.stdout, w)
	}
	if err := structure.ValidateFold(d.FoldOr(vec.Rad(engine.DefaultFoldDegrees))); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "ok: %d modules, %s\n", d.Config.Modules, d.Config.Mode)
	return nil
}

func (c *cli) eval(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("eval: reads source from stdin")
	}
	src, err := io.ReadAll(c.stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	result := c.app.Evaluate(string(src))
	if err := c.writeJSON(result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d evaluation errors", len(result.Errors))
	}
	return nil
}

func (c *cli) convert(args []string) error {
	df := newDesignFlags("convert")
	out := df.fs.String("o", "", "output YAML file (required)")
	d, err := c.load(df, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("convert: -o is required")
	}
	return config.Save(*out, config.FromDesign(d, vec.Rad(engine.DefaultFoldDegrees)))
}

func (c *cli) scansCmd(args []string) error {
	fs := flag.NewFlagSet("scans", flag.ContinueOnError)
	modules := fs.Int("modules", 0, "only purge scans for this module count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || fs.Arg(0) != "purge" {
		return fmt.Errorf("usage: foldframe scans [-modules n] purge")
	}
	if c.scans == nil {
		return fmt.Errorf("scan cache disabled")
	}
	n, err := c.scans.Purge(context.Background(), *modules)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "purged %d scans from %s\n", n, c.scans.Path())
	return nil
}

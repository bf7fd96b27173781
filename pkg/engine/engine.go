// Package engine evaluates foldframe design files. A design file is a
// zygomys Lisp program whose builtins (structure, beam, arch, panels, fold
// and friends) describe one structure; evaluation runs in a fresh sandbox
// and produces a Design.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/bom"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/search"
	"github.com/chazu/foldframe/pkg/structure"
	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultFoldDegrees is the fold angle used when a design sets none.
const DefaultFoldDegrees = 40.0

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a non-fatal observation about an evaluated design.
type EvalWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Design is everything a design file describes. Angles are radians.
type Design struct {
	Name    string
	Config  structure.Config
	Panels  panel.Config
	Costs   bom.Costs
	Fold    float64
	HasFold bool

	Warnings []EvalWarning
}

// NewDesign returns the design an empty file evaluates to.
func NewDesign() *Design {
	return &Design{
		Config: structure.Defaults(),
		Panels: panel.Defaults(),
		Costs:  bom.DefaultCosts(),
	}
}

// FoldOr returns the design's fold angle, or def when none was set.
func (d *Design) FoldOr(def float64) float64 {
	if d.HasFold {
		return d.Fold
	}
	return def
}

// AngleFinder answers the angle queries available to design code.
// *search.Searcher satisfies it.
type AngleFinder interface {
	FindOptimalClosedAngle(c structure.Config, current float64) (float64, bool)
	FindSafeFoldAngle(c structure.Config, target, previous float64) (float64, bool)
}

// Engine wraps the zygomys interpreter for design evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism. Sandboxes take turns through a
// single slot, and only the newest caller receives its result. A sandbox
// that outlives its caller is abandoned and the engine moves on with a new
// slot.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	// slot holds one token while a sandbox runs; zygomys keeps package state.
	slot    chan struct{}
	timeout time.Duration

	angles AngleFinder
	log    *slog.Logger
}

// NewEngine creates an Engine whose angle builtins use a default searcher.
func NewEngine() *Engine {
	return NewEngineWith(search.New())
}

// NewEngineWith creates an Engine using angles for closed-angle and
// safe-angle.
func NewEngineWith(angles AngleFinder) *Engine {
	return &Engine{
		slot:    make(chan struct{}, 1),
		angles:  angles,
		timeout: EvalTimeout,
		log:     applog.WithComponent("engine"),
	}
}

// SetTimeout changes the per-evaluation limit. Non-positive values restore
// EvalTimeout.
func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = EvalTimeout
	}
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// Evaluate takes design source and produces a Design.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval/validation failure: returns nil design + eval errors + nil error
//   - On fatal failure (timeout, busy, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Design, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate bounded by ctx as well as the engine timeout.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen, timeout, slot := e.generation, e.timeout, e.slot
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	log := applog.WithOperation(e.log, "evaluate")

	if err := acquire(ctx, slot); err != nil {
		log.Warn("no sandbox slot", slog.Uint64("gen", gen), slog.Any("err", err))
		return nil, nil, err
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() { <-slot }()
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	d, evalErrs, err := e.await(ctx, ch, gen, timeout)
	if abandoned(err) {
		e.abandon(slot)
	}
	switch {
	case err != nil:
		log.Warn("evaluation failed", slog.Uint64("gen", gen), slog.Any("err", err))
	case len(evalErrs) > 0:
		log.Debug("evaluation errors", slog.Uint64("gen", gen), slog.Int("count", len(evalErrs)))
	default:
		log.Debug("evaluated", slog.Uint64("gen", gen), slog.Int("modules", d.Config.Modules))
	}
	return d, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Design, []EvalError, error) {
	d := NewDesign()

	// Empty source is a valid program that produces the default design.
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, d, e.angles)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	res := structure.Validate(d.Config)
	if !res.OK() {
		errs := make([]EvalError, len(res.Errors))
		for i, ve := range res.Errors {
			errs[i] = EvalError{Message: ve.Error()}
		}
		return nil, errs, nil
	}
	for _, w := range res.Warnings {
		d.Warnings = append(d.Warnings, EvalWarning{Field: w.Field, Message: w.Message})
	}
	return d, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

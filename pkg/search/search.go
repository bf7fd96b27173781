// Package search looks for fold angles with useful properties: the nearest
// collision-free angle to a target, and the angle at which a ring closes.
//
// Every search loop has a fixed iteration cap. Not finding an angle is a
// normal outcome reported through the boolean result.
package search

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/collision"
	"github.com/chazu/foldframe/pkg/linkage"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/floats"
)

// Search resolutions.
var (
	SafeStep        = vec.Rad(0.5)
	SafeRange       = vec.Rad(30)
	ScanStep        = vec.Rad(0.5)
	NearWindow      = vec.Rad(2) // non-crossing samples this close to a full turn are kept
	FineRange       = vec.Rad(2) // ± around the chosen candidate
	FineStep        = vec.Rad(0.1)
	ClosedTolerance = vec.Rad(1) // accepted |total rotation − 2π|
)

const bisectIterations = 60

// ScanVersion identifies the closing scan. Bump it whenever Scan or the
// linkage solver changes what a scan returns.
const ScanVersion = 1

// ScanFingerprint names the scan version and its sampling settings.
// Persistent scan caches prefix their keys with it, so stored scans from
// another version or resolution never match.
func ScanFingerprint() string {
	return fmt.Sprintf("scan%d/step=%g/near=%g", ScanVersion, vec.Deg(ScanStep), vec.Deg(NearWindow))
}

// Solver produces geometry for a fold angle. *structure.Cache satisfies it.
type Solver interface {
	Solve(c structure.Config, fold float64) (*structure.Geometry, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(c structure.Config, fold float64) (*structure.Geometry, error)

// Solve calls f.
func (f SolverFunc) Solve(c structure.Config, fold float64) (*structure.Geometry, error) {
	return f(c, fold)
}

// Searcher runs both searches against one solver and detector.
type Searcher struct {
	Solver   Solver
	Detector *collision.Detector
	Scans    ScanCache
	Logger   *slog.Logger
}

// New returns a Searcher backed by a solve cache, the default detector and
// an in-memory scan cache.
func New() *Searcher {
	return &Searcher{
		Solver:   structure.NewCache(structure.DefaultCacheSize),
		Detector: collision.NewDetector(),
		Scans:    NewMemoryCache(nil),
		Logger:   applog.WithComponent("search"),
	}
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return applog.Discard()
	}
	return s.Logger
}

// Clean reports whether c folded to fold solves without collisions.
func (s *Searcher) Clean(c structure.Config, fold float64) bool {
	g, err := s.Solver.Solve(c, fold)
	if err != nil {
		s.logger().Debug("solve failed", slog.Float64("deg", vec.Deg(fold)), slog.Any("err", err))
		return false
	}
	return len(s.Detector.Detect(g, c)) == 0
}

// FindSafeFoldAngle expands outward from target in SafeStep increments up
// to SafeRange and returns the first angle with no collisions. The first
// direction tried at each step is back towards previous.
func (s *Searcher) FindSafeFoldAngle(c structure.Config, target, previous float64) (float64, bool) {
	log := applog.WithOperation(s.logger(), "safe_angle")
	target = linkage.ClampFold(target)
	if s.Clean(c, target) {
		return target, true
	}

	dir := -1.0
	if previous > target {
		dir = 1
	}
	seen := map[int64]bool{angleKey(target): true}
	steps := int(math.Round(SafeRange / SafeStep))
	for k := 1; k <= steps; k++ {
		for _, sign := range [2]float64{dir, -dir} {
			a := linkage.ClampFold(target + sign*float64(k)*SafeStep)
			key := angleKey(a)
			if seen[key] {
				continue
			}
			seen[key] = true
			if s.Clean(c, a) {
				log.Debug("safe angle found",
					slog.Float64("target_deg", vec.Deg(target)),
					slog.Float64("deg", vec.Deg(a)))
				return a, true
			}
		}
	}
	log.Info("no safe angle in range", slog.Float64("target_deg", vec.Deg(target)))
	return 0, false
}

func angleKey(a float64) int64 {
	return int64(math.Round(a * 1e9))
}

// residual is the signed distance of the total rotation from a full turn.
func residual(c structure.Config, fold float64) float64 {
	return linkage.TotalRotation(fold, c.LinkageParams(), c.Modules) - 2*math.Pi
}

// FindOptimalClosedAngle returns the fold angle nearest current at which
// the ring's total rotation is one full turn. The candidate scan is cached
// per ScanKey; the choice among candidates depends on current.
func (s *Searcher) FindOptimalClosedAngle(c structure.Config, current float64) (float64, bool) {
	log := applog.WithOperation(s.logger(), "closed_angle")
	if c.Modules < 1 {
		return 0, false
	}
	current = linkage.ClampFold(current)

	cands := s.candidates(c, log)
	best, ok := pick(cands, current, residual(c, current) > 0)
	if !ok {
		best, ok = bisectFrom(c, current)
		if !ok {
			log.Info("no closing angle", slog.Int("modules", c.Modules))
			return 0, false
		}
	}

	best = refine(c, best)
	r := residual(c, best)
	log.Debug("closing angle",
		slog.Float64("deg", vec.Deg(best)),
		slog.Float64("residual_deg", vec.Deg(r)))
	if math.Abs(r) >= ClosedTolerance {
		return best, false
	}
	return best, true
}

func (s *Searcher) candidates(c structure.Config, log *slog.Logger) []Candidate {
	key := KeyFor(c)
	if s.Scans != nil {
		cands, ok, err := s.Scans.LoadScan(key)
		if err != nil {
			log.Warn("scan cache load failed", slog.Any("err", err))
		} else if ok {
			return cands
		}
	}
	cands := Scan(c)
	if s.Scans != nil {
		if err := s.Scans.StoreScan(key, cands); err != nil {
			log.Warn("scan cache store failed", slog.Any("err", err))
		}
	}
	return cands
}

// Scan samples the whole fold domain at ScanStep and returns every
// interpolated full-turn crossing plus every sample within NearWindow of a
// full turn that is not next to a crossing.
func Scan(c structure.Config) []Candidate {
	lo, hi := structure.FoldDomain()
	n := int(math.Round((hi-lo)/ScanStep)) + 1
	angles := floats.Span(make([]float64, n), lo, hi)
	res := make([]float64, n)
	for i, a := range angles {
		res[i] = residual(c, a)
	}

	var out []Candidate
	nearCrossing := make([]bool, n)
	for i := 0; i+1 < n; i++ {
		f0, f1 := res[i], res[i+1]
		if f0 == 0 || (f0 < 0) == (f1 < 0) {
			continue
		}
		t := f0 / (f0 - f1)
		a := angles[i] + t*(angles[i+1]-angles[i])
		out = append(out, Candidate{Angle: a, Residual: residual(c, a), Crossing: true})
		nearCrossing[i], nearCrossing[i+1] = true, true
	}
	for i, f := range res {
		if f == 0 {
			out = append(out, Candidate{Angle: angles[i], Residual: 0, Crossing: true})
			continue
		}
		if math.Abs(f) < NearWindow && !nearCrossing[i] {
			out = append(out, Candidate{Angle: angles[i], Residual: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Angle < out[j].Angle })
	return out
}

// pick chooses the candidate nearest current. An over-folded ring only
// considers candidates that are themselves near a full turn.
func pick(cands []Candidate, current float64, overfolded bool) (float64, bool) {
	best, found := 0.0, false
	bestDist := math.Inf(1)
	for _, c := range cands {
		if overfolded && math.Abs(c.Residual) >= NearWindow {
			continue
		}
		if d := math.Abs(c.Angle - current); d < bestDist {
			best, bestDist, found = c.Angle, d, true
		}
	}
	if !found && overfolded {
		return pick(cands, current, false)
	}
	return best, found
}

// bisectFrom walks away from current in the direction that shrinks the
// residual until its sign flips, then bisects the bracket.
func bisectFrom(c structure.Config, current float64) (float64, bool) {
	lo, hi := structure.FoldDomain()
	f0 := residual(c, current)
	if f0 == 0 {
		return current, true
	}
	probe := linkage.ClampFold(current + ScanStep)
	dir := 1.0
	if math.Abs(residual(c, probe)) > math.Abs(f0) {
		dir = -1
	}

	a, fa := current, f0
	for i := 0; i < int(math.Ceil((hi-lo)/ScanStep)); i++ {
		b := linkage.ClampFold(a + dir*ScanStep)
		if b == a {
			return 0, false
		}
		fb := residual(c, b)
		if (fa < 0) != (fb < 0) || fb == 0 {
			return bisect(c, a, b), true
		}
		a, fa = b, fb
	}
	return 0, false
}

// bisect narrows a sign-change bracket [a, b].
func bisect(c structure.Config, a, b float64) float64 {
	fa := residual(c, a)
	for i := 0; i < bisectIterations; i++ {
		m := (a + b) / 2
		fm := residual(c, m)
		if fm == 0 {
			return m
		}
		if (fm < 0) == (fa < 0) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	return (a + b) / 2
}

// refine sweeps ±FineRange around a at FineStep, keeps the sample with the
// smallest residual, and polishes it by bisection when it brackets a
// crossing with a neighbour.
func refine(c structure.Config, a float64) float64 {
	best, bestRes := a, math.Abs(residual(c, a))
	n := int(math.Round(2*FineRange/FineStep)) + 1
	samples := floats.Span(make([]float64, n), a-FineRange, a+FineRange)
	for i := range samples {
		samples[i] = linkage.ClampFold(samples[i])
	}
	for i, x := range samples {
		fx := residual(c, x)
		if math.Abs(fx) < bestRes {
			best, bestRes = x, math.Abs(fx)
		}
		if i == 0 {
			continue
		}
		prev := samples[i-1]
		fp := residual(c, prev)
		if fp != 0 && fx != 0 && (fp < 0) != (fx < 0) {
			if m := bisect(c, prev, x); math.Abs(residual(c, m)) < bestRes {
				best, bestRes = m, math.Abs(residual(c, m))
			}
		}
	}
	return best
}

package structure

import (
	"fmt"
	"math"

	"github.com/chazu/foldframe/pkg/linkage"
)

// ValidationSeverity indicates whether a validation finding blocks a solve
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks solving
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Field    string             // config field path, e.g. "horizontal.width"
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns the first blocking error, or nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return fmt.Errorf("%w (and %d more)", r.Errors[0], len(r.Errors)-1)
}

// Validate checks c at the boundary. The solver itself assumes validated,
// finite input and never re-checks it.
func Validate(c Config) ValidationResult {
	var res ValidationResult
	add := func(sev ValidationSeverity, field, format string, args ...any) {
		e := ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: sev}
		if sev == SeverityError {
			res.Errors = append(res.Errors, e)
		} else {
			res.Warnings = append(res.Warnings, e)
		}
	}
	positive := func(field string, v float64) {
		if !finite(v) || v <= 0 {
			add(SeverityError, field, "must be a finite value > 0, got %g", v)
		}
	}
	nonNegative := func(field string, v float64) {
		if !finite(v) || v < 0 {
			add(SeverityError, field, "must be a finite value >= 0, got %g", v)
		}
	}

	if c.Modules < 1 {
		add(SeverityError, "modules", "must be at least 1, got %d", c.Modules)
	}
	positive("horizontalLength", c.HorizontalLength)
	positive("verticalLength", c.VerticalLength)
	if !finite(c.PivotPercent) || c.PivotPercent < 0 || c.PivotPercent > 100 {
		add(SeverityError, "pivotPercent", "must be within [0, 100], got %g", c.PivotPercent)
	}
	angles := []struct {
		field string
		v     float64
	}{
		{"hobermanAngle", c.HobermanAngle},
		{"pivotAngle", c.PivotAngle},
		{"arch.rotation", c.Arch.Rotation},
	}
	for _, a := range angles {
		if !finite(a.v) {
			add(SeverityError, a.field, "must be finite")
		} else if math.Abs(a.v) >= math.Pi/2 {
			add(SeverityWarning, a.field, "angle of %.1f deg is unusually large", a.v*180/math.Pi)
		}
	}

	positive("horizontal.width", c.Horizontal.Width)
	positive("horizontal.thickness", c.Horizontal.Thickness)
	positive("vertical.width", c.Vertical.Width)
	positive("vertical.thickness", c.Vertical.Thickness)
	if c.HorizontalStack < 1 {
		add(SeverityError, "horizontalStack", "must be at least 1, got %d", c.HorizontalStack)
	}
	if c.VerticalStack < 1 {
		add(SeverityError, "verticalStack", "must be at least 1, got %d", c.VerticalStack)
	}
	nonNegative("stackGap", c.StackGap)
	nonNegative("endOffset", c.EndOffset)
	nonNegative("bracketOffset", c.BracketOffset)

	positive("bracket.length", c.Bracket.Length)
	positive("bracket.height", c.Bracket.Height)
	positive("bracket.thickness", c.Bracket.Thickness)
	positive("bolt.diameter", c.Bolt.Diameter)
	nonNegative("bolt.headDiameter", c.Bolt.HeadDiameter)
	nonNegative("bolt.overhang", c.Bolt.Overhang)

	switch c.Mode {
	case ModeRing, ModeArch:
	default:
		add(SeverityError, "mode", "unknown mode %q, expected ring or arch", c.Mode)
	}
	if c.ArrayCount < 1 {
		add(SeverityError, "arrayCount", "must be at least 1, got %d", c.ArrayCount)
	}
	if c.Mode == ModeArch && c.ArrayCount > 1 {
		add(SeverityWarning, "arrayCount", "arrays apply only in ring mode and are ignored for arches")
	}
	if c.Mode != ModeArch && (c.Arch.CapUprights || c.Arch.FixedBeams || c.Arch.Flip) {
		add(SeverityWarning, "arch", "arch options are ignored in %s mode", c.Mode)
	}

	if finite(c.HorizontalLength) && finite(c.PivotPercent) && c.Modules >= 1 {
		a := c.HorizontalLength * c.PivotPercent / 100
		b := c.HorizontalLength - a
		if a < linkage.MinSafeDimension || b < linkage.MinSafeDimension {
			add(SeverityWarning, "pivotPercent", "a beam segment is shorter than %g mm and will be floored", linkage.MinSafeDimension)
		}
	}
	if c.Bracket.Height > c.VerticalLength/2 && c.VerticalLength > 0 {
		add(SeverityWarning, "bracket.height", "brackets overlap between levels")
	}
	return res
}

// ValidateFold checks that a fold angle is finite and inside the domain.
func ValidateFold(fold float64) error {
	lo, hi := FoldDomain()
	if !finite(fold) {
		return fmt.Errorf("fold angle must be finite, got %g", fold)
	}
	if fold < lo || fold > hi {
		return fmt.Errorf("fold angle %.3f deg outside [%.0f, %.0f] deg", fold*180/math.Pi, lo*180/math.Pi, hi*180/math.Pi)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

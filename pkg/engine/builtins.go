package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites design source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: closed-angle -> closed_angle
//     zygomys reads a hyphen inside an identifier as subtraction.
//
//  3. ; comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		if math.IsNaN(v.Val) || math.IsInf(v.Val, 0) {
			return 0, fmt.Errorf("expected finite number, got %g", v.Val)
		}
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected whole number, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false. A keyword given without a value counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}


// ---------------------------------------------------------------------------
// Option tables
// ---------------------------------------------------------------------------

// setter stores one keyword value into the design.
type setter func(zygo.Sexp) error

func number(dst *float64) setter {
	return func(s zygo.Sexp) error {
		f, err := toFloat64(s)
		if err == nil {
			*dst = f
		}
		return err
	}
}

// degrees stores a value given in degrees as radians.
func degrees(dst *float64) setter {
	return func(s zygo.Sexp) error {
		f, err := toFloat64(s)
		if err == nil {
			*dst = vec.Rad(f)
		}
		return err
	}
}

func whole(dst *int) setter {
	return func(s zygo.Sexp) error {
		n, err := toInt(s)
		if err == nil {
			*dst = n
		}
		return err
	}
}

func flag(dst *bool) setter {
	return func(s zygo.Sexp) error {
		b, err := toBool(s)
		if err == nil {
			*dst = b
		}
		return err
	}
}

func text(dst *string) setter {
	return func(s zygo.Sexp) error {
		v, err := toString(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func mode(dst *structure.Mode) setter {
	return func(s zygo.Sexp) error {
		name, err := toKeywordString(s)
		if err != nil {
			return err
		}
		switch m := structure.Mode(name); m {
		case structure.ModeRing, structure.ModeArch:
			*dst = m
			return nil
		}
		return fmt.Errorf("invalid mode %q, expected ring or arch", name)
	}
}

// applyOptions runs the setter for every keyword in args, in name order.
// Positional arguments and unknown keywords are errors.
func applyOptions(fn string, args []zygo.Sexp, table map[string]setter) error {
	pa := parseArgs(args)
	if len(pa.positional) > 0 {
		return fmt.Errorf("%s: unexpected argument %s", fn, pa.positional[0].SexpString(nil))
	}
	names := make([]string, 0, len(pa.kw))
	for k := range pa.kw {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		set, ok := table[k]
		if !ok {
			return fmt.Errorf("%s: unknown option :%s", fn, k)
		}
		if err := set(pa.kw[k]); err != nil {
			return fmt.Errorf("%s: %s: %w", fn, k, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the design builtins into env. Each builtin
// updates d in place, so later calls override earlier ones field by field.
// Lengths are millimetres and angles are degrees.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, d *Design, angles AngleFinder) {
	c := &d.Config

	// (structure :modules 8 :horizontal-length 1000 :mode :arch ...)
	env.AddFunction("structure", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		err := applyOptions("structure", args, map[string]setter{
			"name":              text(&d.Name),
			"modules":           whole(&c.Modules),
			"horizontal-length": number(&c.HorizontalLength),
			"vertical-length":   number(&c.VerticalLength),
			"pivot-percent":     number(&c.PivotPercent),
			"hoberman-angle":    degrees(&c.HobermanAngle),
			"pivot-angle":       degrees(&c.PivotAngle),
			"horizontal-stack":  whole(&c.HorizontalStack),
			"vertical-stack":    whole(&c.VerticalStack),
			"stack-gap":         number(&c.StackGap),
			"mirror-stacks":     flag(&c.MirrorStacks),
			"end-offset":        number(&c.EndOffset),
			"bracket-offset":    number(&c.BracketOffset),
			"mode":              mode(&c.Mode),
			"array-count":       whole(&c.ArrayCount),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpInt{Val: int64(c.Modules)}, nil
	})

	// (beam :role :horizontal :width 40 :thickness 20); without :role both
	// sections are set.
	env.AddFunction("beam", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		targets := []*structure.Section{&c.Horizontal, &c.Vertical}
		var rest []zygo.Sexp
		for i := 0; i < len(args); i++ {
			k, ok := isKW(args[i])
			if !ok || k != "role" {
				rest = append(rest, args[i])
				continue
			}
			if i+1 >= len(args) {
				return zygo.SexpNull, fmt.Errorf("beam: role: missing value")
			}
			i++
			role, err := toKeywordString(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("beam: role: %w", err)
			}
			switch role {
			case "horizontal":
				targets = []*structure.Section{&c.Horizontal}
			case "vertical":
				targets = []*structure.Section{&c.Vertical}
			default:
				return zygo.SexpNull, fmt.Errorf("beam: invalid role %q, expected horizontal or vertical", role)
			}
		}

		var width, thickness float64
		var setWidth, setThickness bool
		err := applyOptions("beam", rest, map[string]setter{
			"width": func(s zygo.Sexp) error {
				setWidth = true
				return number(&width)(s)
			},
			"thickness": func(s zygo.Sexp) error {
				setThickness = true
				return number(&thickness)(s)
			},
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		for _, t := range targets {
			if setWidth {
				t.Width = width
			}
			if setThickness {
				t.Thickness = thickness
			}
		}
		return zygo.SexpNull, nil
	})

	// (arch :flip true :rotation 10 :cap-uprights true :fixed-beams false)
	// also switches the structure to arch mode.
	env.AddFunction("arch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		err := applyOptions("arch", args, map[string]setter{
			"flip":         flag(&c.Arch.Flip),
			"rotation":     degrees(&c.Arch.Rotation),
			"cap-uprights": flag(&c.Arch.CapUprights),
			"fixed-beams":  flag(&c.Arch.FixedBeams),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		c.Mode = structure.ModeArch
		return zygo.SexpNull, nil
	})

	// (bracket :length 60 :height 60 :thickness 6)
	env.AddFunction("bracket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return zygo.SexpNull, applyOptions("bracket", args, map[string]setter{
			"length":    number(&c.Bracket.Length),
			"height":    number(&c.Bracket.Height),
			"thickness": number(&c.Bracket.Thickness),
		})
	})

	// (bolt :diameter 10 :head-diameter 17 :overhang 8)
	env.AddFunction("bolt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return zygo.SexpNull, applyOptions("bolt", args, map[string]setter{
			"diameter":      number(&c.Bolt.Diameter),
			"head-diameter": number(&c.Bolt.HeadDiameter),
			"overhang":      number(&c.Bolt.Overhang),
		})
	})

	// (panels :rows 2 :cols 1 :width 600 :height 1200 :lift 30 ...)
	// Calling panels enables them unless :enabled false is given.
	env.AddFunction("panels", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p := &d.Panels
		p.Enabled = true
		return zygo.SexpNull, applyOptions("panels", args, map[string]setter{
			"enabled":    flag(&p.Enabled),
			"rows":       whole(&p.Rows),
			"cols":       whole(&p.Cols),
			"width":      number(&p.Width),
			"height":     number(&p.Height),
			"thickness":  number(&p.Thickness),
			"spacing-x":  number(&p.SpacingX),
			"spacing-y":  number(&p.SpacingY),
			"separation": number(&p.Separation),
			"slide":      number(&p.Slide),
			"lift":       number(&p.Lift),
		})
	})

	// (costs :currency "EUR" :beam-per-metre 4.5 :bracket 2.2 :bolt 0.6 :panel 18)
	env.AddFunction("costs", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		k := &d.Costs
		return zygo.SexpNull, applyOptions("costs", args, map[string]setter{
			"currency":       text(&k.Currency),
			"beam-per-metre": number(&k.BeamPerMetre),
			"bracket":        number(&k.BracketEach),
			"bolt":           number(&k.BoltEach),
			"panel":          number(&k.PanelEach),
		})
	})

	// (fold 40) sets the fold angle in degrees and returns it.
	env.AddFunction("fold", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("fold requires exactly 1 argument, got %d", len(args))
		}
		deg, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fold: %w", err)
		}
		if err := structure.ValidateFold(vec.Rad(deg)); err != nil {
			return zygo.SexpNull, fmt.Errorf("fold: %w", err)
		}
		d.Fold, d.HasFold = vec.Rad(deg), true
		return &zygo.SexpFloat{Val: deg}, nil
	})

	// (closed-angle) returns the closing fold angle, in degrees, of the
	// structure as configured so far, searching from the current fold.
	env.AddFunction("closed_angle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("closed-angle takes no arguments")
		}
		if err := structure.Validate(*c).Err(); err != nil {
			return zygo.SexpNull, fmt.Errorf("closed-angle: %w", err)
		}
		a, ok := angles.FindOptimalClosedAngle(*c, d.FoldOr(vec.Rad(DefaultFoldDegrees)))
		if !ok {
			return zygo.SexpNull, fmt.Errorf("closed-angle: no closing angle for %d modules", c.Modules)
		}
		return &zygo.SexpFloat{Val: vec.Deg(a)}, nil
	})

	// (safe-angle 50) returns the nearest collision-free angle to 50 degrees.
	env.AddFunction("safe_angle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("safe-angle requires exactly 1 argument, got %d", len(args))
		}
		target, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("safe-angle: %w", err)
		}
		if err := structure.Validate(*c).Err(); err != nil {
			return zygo.SexpNull, fmt.Errorf("safe-angle: %w", err)
		}
		a, ok := angles.FindSafeFoldAngle(*c, vec.Rad(target), d.FoldOr(vec.Rad(target)))
		if !ok {
			return zygo.SexpNull, fmt.Errorf("safe-angle: no collision-free angle near %g degrees", target)
		}
		return &zygo.SexpFloat{Val: vec.Deg(a)}, nil
	})
}

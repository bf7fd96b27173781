// Package config loads and saves foldframe design documents: YAML files
// describing a structure, its panels, prices and logging. Angles in a
// document are degrees; ToDesign converts them to the radians the engine
// packages use.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	applog "github.com/chazu/foldframe/internal/log"
	"github.com/chazu/foldframe/pkg/bom"
	"github.com/chazu/foldframe/pkg/engine"
	"github.com/chazu/foldframe/pkg/panel"
	"github.com/chazu/foldframe/pkg/structure"
	"github.com/chazu/foldframe/pkg/vec"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is written to config_version by Save.
const CurrentVersion = 1

// Environment variable names for overrides.
const (
	EnvModules   = "FOLD_MODULES"
	EnvMode      = "FOLD_MODE"
	EnvFold      = "FOLD_ANGLE"
	EnvLogLevel  = "FOLD_LOG_LEVEL"
	EnvLogFormat = "FOLD_LOG_FORMAT"
	EnvLogSource = "FOLD_LOG_SOURCE"
	EnvLogFile   = "FOLD_LOG_FILE"
)

//go:embed schema.json
var schema []byte

// Section is a beam cross-section.
type Section struct {
	Width     float64 `yaml:"width"`
	Thickness float64 `yaml:"thickness"`
}

type Bracket struct {
	Length    float64 `yaml:"length"`
	Height    float64 `yaml:"height"`
	Thickness float64 `yaml:"thickness"`
}

type Bolt struct {
	Diameter     float64 `yaml:"diameter"`
	HeadDiameter float64 `yaml:"head_diameter"`
	Overhang     float64 `yaml:"overhang"`
}

// Structure mirrors structure.Config with angles in degrees.
type Structure struct {
	Modules          int     `yaml:"modules"`
	HorizontalLength float64 `yaml:"horizontal_length"`
	VerticalLength   float64 `yaml:"vertical_length"`
	PivotPercent     float64 `yaml:"pivot_percent"`
	HobermanAngle    float64 `yaml:"hoberman_angle"`
	PivotAngle       float64 `yaml:"pivot_angle"`
	FoldAngle        float64 `yaml:"fold_angle"`

	Horizontal      Section `yaml:"horizontal"`
	Vertical        Section `yaml:"vertical"`
	HorizontalStack int     `yaml:"horizontal_stack"`
	VerticalStack   int     `yaml:"vertical_stack"`
	StackGap        float64 `yaml:"stack_gap"`
	MirrorStacks    bool    `yaml:"mirror_stacks"`
	EndOffset       float64 `yaml:"end_offset"`
	BracketOffset   float64 `yaml:"bracket_offset"`

	Bracket Bracket `yaml:"bracket"`
	Bolt    Bolt    `yaml:"bolt"`
}

type Arch struct {
	Flip        bool    `yaml:"flip"`
	Rotation    float64 `yaml:"rotation"`
	CapUprights bool    `yaml:"cap_uprights"`
	FixedBeams  bool    `yaml:"fixed_beams"`
}

type Mode struct {
	Type       string `yaml:"type"`
	ArrayCount int    `yaml:"array_count"`
	Arch       Arch   `yaml:"arch"`
}

// Document is the on-disk configuration.
type Document struct {
	ConfigVersion int            `yaml:"config_version"`
	Name          string         `yaml:"name,omitempty"`
	Structure     Structure      `yaml:"structure"`
	Mode          Mode           `yaml:"mode"`
	Panels        panel.Config   `yaml:"panels"`
	Costs         bom.Costs      `yaml:"costs"`
	Logging       applog.Options `yaml:"logging"`
}

// Defaults returns the document describing the default design.
func Defaults() Document {
	return FromDesign(engine.NewDesign(), vec.Rad(engine.DefaultFoldDegrees))
}

// FromDesign converts an evaluated design to a document. fold is used when
// the design sets no fold angle.
func FromDesign(d *engine.Design, fold float64) Document {
	c := d.Config
	return Document{
		ConfigVersion: CurrentVersion,
		Name:          d.Name,
		Structure: Structure{
			Modules:          c.Modules,
			HorizontalLength: c.HorizontalLength,
			VerticalLength:   c.VerticalLength,
			PivotPercent:     c.PivotPercent,
			HobermanAngle:    vec.Deg(c.HobermanAngle),
			PivotAngle:       vec.Deg(c.PivotAngle),
			FoldAngle:        vec.Deg(d.FoldOr(fold)),
			Horizontal:       Section(c.Horizontal),
			Vertical:         Section(c.Vertical),
			HorizontalStack:  c.HorizontalStack,
			VerticalStack:    c.VerticalStack,
			StackGap:         c.StackGap,
			MirrorStacks:     c.MirrorStacks,
			EndOffset:        c.EndOffset,
			BracketOffset:    c.BracketOffset,
			Bracket:          Bracket(c.Bracket),
			Bolt:             Bolt(c.Bolt),
		},
		Mode: Mode{
			Type:       string(c.Mode),
			ArrayCount: c.ArrayCount,
			Arch: Arch{
				Flip:        c.Arch.Flip,
				Rotation:    vec.Deg(c.Arch.Rotation),
				CapUprights: c.Arch.CapUprights,
				FixedBeams:  c.Arch.FixedBeams,
			},
		},
		Panels: d.Panels,
		Costs:  d.Costs,
		Logging: applog.Options{
			Level:  "info",
			Format: "console",
		},
	}
}

// ToDesign converts the document to an engine design with angles in
// radians. The design is not validated.
func (doc Document) ToDesign() *engine.Design {
	s := doc.Structure
	d := engine.NewDesign()
	d.Name = doc.Name
	d.Config = structure.Config{
		Modules:          s.Modules,
		HorizontalLength: s.HorizontalLength,
		VerticalLength:   s.VerticalLength,
		PivotPercent:     s.PivotPercent,
		HobermanAngle:    vec.Rad(s.HobermanAngle),
		PivotAngle:       vec.Rad(s.PivotAngle),
		Horizontal:       structure.Section(s.Horizontal),
		Vertical:         structure.Section(s.Vertical),
		HorizontalStack:  s.HorizontalStack,
		VerticalStack:    s.VerticalStack,
		StackGap:         s.StackGap,
		MirrorStacks:     s.MirrorStacks,
		EndOffset:        s.EndOffset,
		BracketOffset:    s.BracketOffset,
		Mode:             structure.Mode(doc.Mode.Type),
		Arch: structure.ArchOptions{
			Flip:        doc.Mode.Arch.Flip,
			Rotation:    vec.Rad(doc.Mode.Arch.Rotation),
			CapUprights: doc.Mode.Arch.CapUprights,
			FixedBeams:  doc.Mode.Arch.FixedBeams,
		},
		ArrayCount: doc.Mode.ArrayCount,
		Bracket:    structure.BracketSpec(s.Bracket),
		Bolt:       structure.BoltSpec(s.Bolt),
	}
	d.Panels = doc.Panels
	d.Costs = doc.Costs
	d.Fold = vec.Rad(s.FoldAngle)
	d.HasFold = true
	return d
}

// Validate checks the document's structure against the engine rules and
// its fold angle against the fold domain.
func (doc Document) Validate() error {
	d := doc.ToDesign()
	res := structure.Validate(d.Config)
	return errors.Join(res.Err(), structure.ValidateFold(d.Fold))
}

// DefaultPath returns the per-user configuration file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, "foldframe", "config.yaml"), nil
}

// Load reads the document at path over the defaults and applies
// environment overrides. An empty path loads DefaultPath when it exists.
func Load(path string) (Document, error) {
	doc := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			applyEnvOverrides(&doc)
			return doc, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := ValidateSchema(data); err != nil {
			return doc, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return doc, fmt.Errorf("read config: %w", err)
	}

	normalize(&doc)
	applyEnvOverrides(&doc)
	return doc, nil
}

// Save writes doc to path, creating parent directories.
func Save(path string, doc Document) error {
	if doc.ConfigVersion == 0 {
		doc.ConfigVersion = CurrentVersion
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ValidateSchema checks raw YAML against the embedded JSON schema.
func ValidateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if raw == nil {
		return nil
	}
	// Round-trip through JSON so the loader sees plain JSON types.
	js, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(js))
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func normalize(doc *Document) {
	doc.Mode.Type = strings.ToLower(strings.TrimSpace(doc.Mode.Type))
	doc.Logging.Level = strings.ToLower(strings.TrimSpace(doc.Logging.Level))
	doc.Logging.Format = strings.ToLower(strings.TrimSpace(doc.Logging.Format))
	doc.Logging.File = strings.TrimSpace(doc.Logging.File)
	doc.Costs.Currency = strings.ToUpper(strings.TrimSpace(doc.Costs.Currency))
}

func applyEnvOverrides(doc *Document) {
	if v := os.Getenv(EnvModules); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			doc.Structure.Modules = n
		}
	}
	if v := os.Getenv(EnvMode); v != "" {
		doc.Mode.Type = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(EnvFold); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			doc.Structure.FoldAngle = f
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		doc.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		doc.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogSource); v != "" {
		doc.Logging.AddSource = isTrue(v)
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		doc.Logging.File = v
	}
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the environment variable overriding a document
// key, or "" when the key has none.
func EnvOverrideFor(key string) string {
	switch key {
	case "structure.modules":
		return EnvModules
	case "structure.fold_angle":
		return EnvFold
	case "mode.type":
		return EnvMode
	case "logging.level":
		return EnvLogLevel
	case "logging.format":
		return EnvLogFormat
	case "logging.add_source":
		return EnvLogSource
	case "logging.file":
		return EnvLogFile
	}
	return ""
}

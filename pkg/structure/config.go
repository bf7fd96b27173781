// Package structure assembles the 3D geometry of a scissor-linkage ring or
// arch from a Config and a single fold angle.
//
// Every solve produces a fresh Geometry. Nothing in this package mutates a
// Geometry after it has been returned; transforms map one Geometry into a
// new one.
package structure

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/chazu/foldframe/pkg/linkage"
)

// Mode selects the global shape.
type Mode string

const (
	ModeRing Mode = "ring"
	ModeArch Mode = "arch"
)

// Section is a beam cross-section in millimetres.
type Section struct {
	Width     float64 `json:"width"`
	Thickness float64 `json:"thickness"`
}

// ArchOptions only take effect in ModeArch.
type ArchOptions struct {
	Flip        bool    `json:"flip"`
	Rotation    float64 `json:"rotation"` // radians, applied after the feet are levelled
	CapUprights bool    `json:"capUprights"`
	FixedBeams  bool    `json:"fixedBeams"` // straight posts instead of scissor uprights
}

// BracketSpec sizes the plate brackets placed at each joint.
type BracketSpec struct {
	Length    float64 `json:"length"`
	Height    float64 `json:"height"`
	Thickness float64 `json:"thickness"`
}

// BoltSpec sizes the through-bolts placed at every pivot.
type BoltSpec struct {
	Diameter     float64 `json:"diameter"`
	HeadDiameter float64 `json:"headDiameter"`
	Overhang     float64 `json:"overhang"` // length past each face of the stack
}

// Config is the immutable structural input of a solve. Lengths are in
// millimetres, angles in radians.
type Config struct {
	Modules          int     `json:"modules"`
	HorizontalLength float64 `json:"horizontalLength"`
	VerticalLength   float64 `json:"verticalLength"`
	PivotPercent     float64 `json:"pivotPercent"`
	HobermanAngle    float64 `json:"hobermanAngle"`
	PivotAngle       float64 `json:"pivotAngle"`

	Horizontal      Section `json:"horizontal"`
	Vertical        Section `json:"vertical"`
	HorizontalStack int     `json:"horizontalStack"`
	VerticalStack   int     `json:"verticalStack"`
	StackGap        float64 `json:"stackGap"`
	MirrorStacks    bool    `json:"mirrorStacks"` // bottom stack starts with pattern B

	EndOffset     float64 `json:"endOffset"`
	BracketOffset float64 `json:"bracketOffset"`

	Mode       Mode        `json:"mode"`
	Arch       ArchOptions `json:"arch"`
	ArrayCount int         `json:"arrayCount"`

	Bracket BracketSpec `json:"bracket"`
	Bolt    BoltSpec    `json:"bolt"`
}

// Defaults returns an eight-module ring with doubled stacks.
func Defaults() Config {
	return Config{
		Modules:          8,
		HorizontalLength: 1000,
		VerticalLength:   1400,
		PivotPercent:     50,
		Horizontal:       Section{Width: 40, Thickness: 20},
		Vertical:         Section{Width: 40, Thickness: 20},
		HorizontalStack:  2,
		VerticalStack:    2,
		StackGap:         2,
		EndOffset:        20,
		BracketOffset:    5,
		Mode:             ModeRing,
		ArrayCount:       1,
		Bracket:          BracketSpec{Length: 60, Height: 60, Thickness: 6},
		Bolt:             BoltSpec{Diameter: 10, HeadDiameter: 17, Overhang: 8},
	}
}

// LinkageParams returns the solver inputs derived from c.
func (c Config) LinkageParams() linkage.Params {
	return linkage.Params{
		Length:        c.HorizontalLength,
		PivotRatio:    c.PivotPercent / 100,
		HobermanAngle: c.HobermanAngle,
		PivotAngle:    c.PivotAngle,
	}
}

// IsArch reports whether arch-only options apply.
func (c Config) IsArch() bool { return c.Mode == ModeArch }

// HorizontalStackHeight is the thickness of one horizontal stack along the fold axis.
func (c Config) HorizontalStackHeight() float64 {
	return stackDepth(c.HorizontalStack, c.Horizontal.Thickness, c.StackGap)
}

// VerticalStackDepth is the thickness of one upright stack.
func (c Config) VerticalStackDepth() float64 {
	return stackDepth(c.VerticalStack, c.Vertical.Thickness, c.StackGap)
}

func stackDepth(count int, thickness, gap float64) float64 {
	if count < 1 {
		count = 1
	}
	return float64(count)*thickness + float64(count-1)*gap
}

// Hash returns a stable content hash over every geometry-affecting field.
func (c Config) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		// Only non-finite values make Marshal fail.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key returns the memoization key of a (config, fold angle) pair.
func Key(c Config, fold float64) string {
	h := sha256.New()
	h.Write([]byte(c.Hash()))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(fold))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// FoldDomain returns the valid fold angle range.
func FoldDomain() (min, max float64) {
	return linkage.MinFoldAngle, linkage.MaxFoldAngle
}

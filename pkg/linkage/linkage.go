// Package linkage solves the planar scissor joint positions of one module.
//
// A module is an X of two beams crossing at a pivot placed at the plane
// origin. The left beam runs from the bottom-left joint to the top-left
// joint, the right beam from bottom-right to top-right. The fold angle is
// the opening between the two beams; the Hoberman and pivot angles skew
// the joint directions away from a pure X.
package linkage

import (
	"math"

	"github.com/chazu/foldframe/pkg/vec"
	"gonum.org/v1/gonum/spatial/r2"
)

// Fold angle domain and dimension floor.
var (
	MinFoldAngle = vec.Rad(1)
	MaxFoldAngle = vec.Rad(179)
)

// MinSafeDimension is the floor applied to both beam segments so that no
// linkage degenerates to zero length.
const MinSafeDimension = 1.0

// Params are the structural inputs of the solver.
type Params struct {
	Length     float64 // active beam length between the outer joints
	PivotRatio float64 // fraction of Length above the pivot, 0..1

	// HobermanAngle spreads the top joints apart and draws the bottom
	// joints together. It has no effect on RelativeRotation when the active
	// and passive segments are equal, as at a centred pivot: each beam's
	// heading is then the mean of its two joint directions.
	HobermanAngle float64 // radians
	PivotAngle    float64 // radians
}

// Joint names one of the four scissor joints.
type Joint int

const (
	TopLeft Joint = iota
	TopRight
	BottomLeft
	BottomRight
)

func (j Joint) String() string {
	switch j {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// Joints lists the four joints in declaration order.
var Joints = [4]Joint{TopLeft, TopRight, BottomLeft, BottomRight}

// JointSet is the solved plane geometry of one module.
type JointSet struct {
	TopLeft, TopRight       r2.Vec
	BottomLeft, BottomRight r2.Vec

	// Segment lengths above (Active) and below (Passive) the pivot.
	Active, Passive float64

	// RelativeRotation is the rotation of the next module relative to this one.
	RelativeRotation float64
}

// Pivot returns the crossing point, always the plane origin.
func (j JointSet) Pivot() r2.Vec { return r2.Vec{} }

// Joint returns the position of the named joint.
func (j JointSet) Joint(name Joint) r2.Vec {
	switch name {
	case TopLeft:
		return j.TopLeft
	case TopRight:
		return j.TopRight
	case BottomLeft:
		return j.BottomLeft
	default:
		return j.BottomRight
	}
}

// SolveJoints computes the joint positions for the given fold angle.
// Segment lengths are floored at MinSafeDimension. The function is pure
// and defined for every finite input.
func SolveJoints(fold float64, p Params) JointSet {
	ratio := math.Max(0, math.Min(1, p.PivotRatio))
	active := math.Max(p.Length*ratio, MinSafeDimension)
	passive := math.Max(p.Length*(1-ratio), MinSafeDimension)

	half := fold / 2
	h, v := p.HobermanAngle, p.PivotAngle

	js := JointSet{
		TopLeft:     vec.Polar(active, math.Pi/2+half+h),
		BottomLeft:  vec.Polar(passive, -math.Pi/2+half-h+v),
		TopRight:    vec.Polar(active, math.Pi/2-half-h),
		BottomRight: vec.Polar(passive, -math.Pi/2-half+h-v),
		Active:      active,
		Passive:     passive,
	}
	left := vec.Heading(r2.Sub(js.TopLeft, js.BottomLeft))
	right := vec.Heading(r2.Sub(js.TopRight, js.BottomRight))
	js.RelativeRotation = vec.WrapAngle(left - right)
	return js
}

// RelativeRotation returns only the inter-module rotation for fold.
func RelativeRotation(fold float64, p Params) float64 {
	return SolveJoints(fold, p).RelativeRotation
}

// TotalRotation is |relative rotation| accumulated over all modules. A ring
// closes when it reaches exactly 2π.
func TotalRotation(fold float64, p Params, modules int) float64 {
	return math.Abs(RelativeRotation(fold, p)) * float64(modules)
}

// ClampFold limits fold to [MinFoldAngle, MaxFoldAngle].
func ClampFold(fold float64) float64 {
	return math.Max(MinFoldAngle, math.Min(MaxFoldAngle, fold))
}

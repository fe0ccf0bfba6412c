// Package reach provides the capsule vocabulary shared with the verification
// oracle, together with demonstration-grade reachable-set providers for a
// planar articulated arm and a point-measured human. The shield itself only
// depends on the interfaces in the shield package; these implementations back
// the CLI demo and the tests.
package reach

import (
	"fmt"
	"math"
)

// Vec3 is a point in workspace coordinates.
type Vec3 [3]float64

// Capsule is a geometric over-approximation of occupancy: the set of points
// within Radius of the segment P1-P2. A sphere is a capsule with P1 == P2.
type Capsule struct {
	P1     Vec3
	P2     Vec3
	Radius float64
}

func add(a, b Vec3) Vec3      { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b Vec3) Vec3      { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a Vec3, s float64) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}
func dot(a, b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func norm(a Vec3) float64   { return math.Sqrt(dot(a, a)) }

// SegmentDistance returns the minimum distance between segments a1-a2 and
// b1-b2.
func SegmentDistance(a1, a2, b1, b2 Vec3) float64 {
	d1 := sub(a2, a1)
	d2 := sub(b2, b1)
	r := sub(a1, b1)

	a := dot(d1, d1)
	e := dot(d2, d2)
	f := dot(d2, r)

	var s, t float64
	if a <= 1e-12 && e <= 1e-12 {
		return norm(r)
	}
	if a <= 1e-12 {
		t = clamp01(f / e)
	} else {
		c := dot(d1, r)
		if e <= 1e-12 {
			s = clamp01(-c / a)
		} else {
			b := dot(d1, d2)
			den := a*e - b*b
			if den > 1e-12 {
				s = clamp01((b*f - c*e) / den)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	p1 := add(a1, scale(d1, s))
	p2 := add(b1, scale(d2, t))
	return norm(sub(p1, p2))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Distance returns the minimum distance between the surfaces of two capsules.
// Negative values mean the capsules intersect.
func Distance(a, b Capsule) float64 {
	return SegmentDistance(a.P1, a.P2, b.P1, b.P2) - a.Radius - b.Radius
}

// Verifier is a deterministic, side-effect-free collision check over capsule
// sets: safe when every robot capsule keeps at least Clearance from every
// human capsule.
type Verifier struct {
	Clearance float64
}

// IsSafe reports whether no robot capsule comes within Clearance of any human
// capsule.
func (v Verifier) IsSafe(robot, human []Capsule) bool {
	for _, rc := range robot {
		for _, hc := range human {
			if Distance(rc, hc) < v.Clearance {
				return false
			}
		}
	}
	return true
}

// Human is a reachable-set provider for a human modelled as measured joint
// points that may move at up to VMax for the verification horizon.
type Human struct {
	Points  []Vec3  // latest measured joint positions
	VMax    float64 // maximum assumed speed, m/s
	Horizon float64 // look-ahead time, seconds
	Margin  float64 // measurement uncertainty, m
}

// ReachableSet returns one sphere capsule per measured point, inflated by the
// distance the point could cover within the horizon.
func (h *Human) ReachableSet() ([]Capsule, error) {
	if len(h.Points) == 0 {
		return nil, fmt.Errorf("reach: no human measurement available")
	}
	caps := make([]Capsule, len(h.Points))
	for i, p := range h.Points {
		caps[i] = Capsule{P1: p, P2: p, Radius: h.Margin + h.VMax*h.Horizon}
	}
	return caps, nil
}

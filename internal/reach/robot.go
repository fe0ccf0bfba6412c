package reach

import (
	"fmt"
	"math"

	"github.com/hri-lab/shield-engine/internal/motion"
)

// Arm computes reachable sets for a planar articulated arm: each joint angle
// rotates the next link in the x-z plane. The enclosure over a candidate path
// is the per-link hull of the link endpoints across every sampled motion,
// inflated by the link radius.
type Arm struct {
	Base        Vec3
	LinkLengths []float64
	LinkRadius  float64
}

// forward returns the link endpoint positions for a joint configuration,
// starting at the base.
func (a *Arm) forward(q []float64) []Vec3 {
	pts := make([]Vec3, len(a.LinkLengths)+1)
	pts[0] = a.Base
	angle := 0.0
	for i, l := range a.LinkLengths {
		angle += q[i]
		pts[i+1] = add(pts[i], Vec3{l * math.Cos(angle), 0, l * math.Sin(angle)})
	}
	return pts
}

// ReachableSet returns one capsule per link enclosing the link's swept
// positions across the sampled motions.
func (a *Arm) ReachableSet(motions []motion.Motion) ([]Capsule, error) {
	if len(motions) == 0 {
		return nil, fmt.Errorf("reach: empty motion horizon")
	}
	if motions[0].Joints() < len(a.LinkLengths) {
		return nil, fmt.Errorf("reach: %d links but only %d joints", len(a.LinkLengths), motions[0].Joints())
	}

	first := a.forward(motions[0].Q)
	caps := make([]Capsule, len(a.LinkLengths))
	sweep := make([]float64, len(a.LinkLengths))
	for i := range caps {
		caps[i] = Capsule{P1: first[i], P2: first[i+1], Radius: a.LinkRadius}
	}
	// Grow each link capsule by the farthest excursion of its endpoints over
	// the horizon. A pill around the first pose plus that excursion encloses
	// every sampled pose of the link.
	for _, m := range motions[1:] {
		pts := a.forward(m.Q)
		for i := range caps {
			d := math.Max(norm(sub(pts[i], caps[i].P1)), norm(sub(pts[i+1], caps[i].P2)))
			if d > sweep[i] {
				sweep[i] = d
			}
		}
	}
	for i := range caps {
		caps[i].Radius += sweep[i]
	}
	return caps, nil
}

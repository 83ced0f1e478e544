package compositor

import (
	"image/color"
	"math"
)

// Particle is one rising spark of the particles visualizer.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Size   float64
	Color  color.NRGBA
	Life   float64
}

const particleDecay = 0.02

// stepParticles spawns at most one particle, advances the pool, drops
// dead particles and draws the rest with a screen blend.
func (c *Compositor) stepParticles(f *frame) {
	if f.bass > 200 || c.rng.Float64() > 0.8 {
		if c.maxParticles <= 0 || len(c.particles) < c.maxParticles {
			c.particles = append(c.particles, Particle{
				X:     c.rng.Float64() * f.w,
				Y:     f.h + 20,
				VX:    (c.rng.Float64() - 0.5) * 4,
				VY:    -c.rng.Float64()*10 - f.bass/15,
				Size:  c.rng.Float64()*5 + 1,
				Color: hsla(math.Mod(f.t/10, 360), 0.7, 0.6, 1),
				Life:  1,
			})
		}
	}

	for i := len(c.particles) - 1; i >= 0; i-- {
		p := &c.particles[i]
		p.X += p.VX
		p.Y += p.VY
		p.Life -= particleDecay
		if p.Life <= 0 {
			c.particles = append(c.particles[:i], c.particles[i+1:]...)
			continue
		}
		screenDisc(f.dst, p.X, p.Y, p.Size, p.Color, p.Life)
	}
}

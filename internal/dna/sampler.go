// Package dna draws weighted element selections for every layer of an edition.
package dna

import (
	"math/rand/v2"
	"time"

	"github.com/starford/mintforge/internal/models"
)

// Sampler draws DNA from a random source. It is not safe for concurrent use;
// the generator owns a single Sampler.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded with seed. A zero seed is replaced with
// one derived from the current time.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Draw returns one selection per layer in layer order.
func (s *Sampler) Draw(layers []models.LayerDefinition) models.DNA {
	d := make(models.DNA, len(layers))
	for i := range layers {
		el := s.Pick(&layers[i])
		d[i] = models.Selection{
			Layer:     i,
			ElementID: el.ID,
			Filename:  el.Filename,
			Bypass:    layers[i].BypassDNA,
		}
	}
	return d
}

// Pick selects one element of l with probability proportional to its weight:
// draw r in [0, total) and subtract weights in catalog order until r goes
// negative.
func (s *Sampler) Pick(l *models.LayerDefinition) models.Element {
	total := l.TotalWeight()
	if total <= 0 {
		return l.Elements[0]
	}
	r := s.rng.IntN(total)
	for _, e := range l.Elements {
		r -= e.Weight
		if r < 0 {
			return e
		}
	}
	return l.Elements[len(l.Elements)-1]
}

// Shuffle permutes xs in place.
func (s *Sampler) Shuffle(xs []int) {
	s.rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}

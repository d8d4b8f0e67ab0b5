// Package registry tracks accepted DNA keys for one run and enforces the
// bounded retry policy on collisions and rule rejections.
package registry

import (
	"fmt"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/models"
)

// Registry is the set of accepted uniqueness keys. A Registry belongs to a
// single run; it is not safe for concurrent use.
type Registry struct {
	keys map[string]int // key -> edition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{keys: make(map[string]int)}
}

// IsUnique reports whether d's key has not been accepted yet.
func (r *Registry) IsUnique(d models.DNA) bool {
	_, taken := r.keys[d.Key()]
	return !taken
}

// Add records d as accepted for edition. Adding a taken key fails with
// apperr.ErrDuplicate.
func (r *Registry) Add(d models.DNA, edition int) error {
	key := d.Key()
	if prev, taken := r.keys[key]; taken {
		return fmt.Errorf("%w: already used by edition %d", apperr.ErrDuplicate, prev)
	}
	r.keys[key] = edition
	return nil
}

// Len returns the number of accepted keys.
func (r *Registry) Len() int { return len(r.keys) }

// RetryPolicy counts consecutive failed attempts for one configuration group.
type RetryPolicy struct {
	Tolerance int

	group    int
	target   int
	failures int
}

// NewRetryPolicy starts a policy for a configuration group.
func NewRetryPolicy(tolerance, group, target int) *RetryPolicy {
	return &RetryPolicy{Tolerance: tolerance, group: group, target: target}
}

// Fail records a collision or rejection. Once the count reaches the tolerance
// it returns an *apperr.ExhaustedError.
func (p *RetryPolicy) Fail(produced int) error {
	p.failures++
	if p.failures >= p.Tolerance {
		return &apperr.ExhaustedError{
			Group:    p.group,
			Target:   p.target,
			Produced: produced,
			Failures: p.failures,
		}
	}
	return nil
}

// Success resets the consecutive failure count.
func (p *RetryPolicy) Success() { p.failures = 0 }

// Failures returns the current consecutive failure count.
func (p *RetryPolicy) Failures() int { return p.failures }

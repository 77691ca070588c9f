// Package pledge implements the capability registry: namespaced
// permissions with glob-matched values, pluggable per-subsystem
// granters, and a monotonic seal.
package pledge

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/lus-lang/lus/internal/metrics"
	"github.com/lus-lang/lus/internal/rtlog"
)

// Op identifies what a granter is being asked to do.
type Op int

const (
	OpGrant Op = iota
	OpUpdate
	OpCheck
)

// Request is the descriptor passed to a Granter.
type Request struct {
	Op    Op
	Name  string
	Sub   string
	Value string

	// Granted/Stored are populated by the granter: Granted is the
	// OpCheck result; Stored is the granter's own opaque storage,
	// round-tripped across calls for the same permission.
	Granted bool
	Stored  interface{}
}

// Granter owns a permission's storage format and check semantics.
// It's called once per Op; Stored flows through the
// Permission record between calls.
type Granter func(req *Request) error

// Permission is one named, possibly sub-keyed capability.
type Permission struct {
	Name     string
	Sealed   bool
	Rejected bool
	Values   map[string][]string // sub-permission -> allow-value globs ("" = global)
	Stored   interface{}
}

// DeniedError is raised on a denied check.
type DeniedError struct {
	Name string
}

func (e *DeniedError) Error() string { return fmt.Sprintf("pledge: permission %q denied", e.Name) }

// Registry holds every permission and its granter.
type Registry struct {
	mu       sync.Mutex
	granters map[string]Granter
	perms    map[string]*Permission
	sealed   bool
	metrics  *metrics.Registry
}

// New creates an empty Registry. reg may be nil to skip metrics.
func New(reg *metrics.Registry) *Registry {
	return &Registry{granters: map[string]Granter{}, perms: map[string]*Permission{}, metrics: reg}
}

// RegisterGranter installs a per-subsystem granter for name.
func (r *Registry) RegisterGranter(name string, g Granter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granters[name] = g
}

func (r *Registry) permFor(name string) *Permission {
	p, ok := r.perms[name]
	if !ok {
		p = &Permission{Name: name, Values: map[string][]string{}}
		r.perms[name] = p
	}
	return p
}

// Pledge adds value to permission name. After Seal, every subsequent Pledge is a rejected no-op.
func (r *Registry) Pledge(name, sub, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.permFor(name)
	if r.sealed || p.Sealed {
		rtlog.For("pledge").Warn().Str("name", name).Msg("pledge() after seal is a no-op")
		return nil
	}
	if p.Rejected {
		return &DeniedError{Name: name}
	}
	op := OpGrant
	if _, ok := p.Values[sub]; ok {
		op = OpUpdate
	}
	req := &Request{Op: op, Name: name, Sub: sub, Value: value, Stored: p.Stored}
	if g, ok := r.granters[name]; ok {
		if err := g(req); err != nil {
			return err
		}
		p.Stored = req.Stored
	}
	p.Values[sub] = append(p.Values[sub], value)
	rtlog.For("pledge").Info().Str("name", name).Str("sub", sub).Str("value", value).Msg("pledge granted")
	return nil
}

// Reject denies name outright.
func (r *Registry) Reject(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.permFor(name)
	p.Rejected = true
}

// Has checks whether name/sub/value is granted. A permission with no granter matches by glob
// against its stored values directly.
func (r *Registry) Has(name, sub, value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.PledgeChecks.WithLabelValues(name).Inc()
	}
	p, ok := r.perms[name]
	granted := false
	if ok && !p.Rejected {
		if g, has := r.granters[name]; has {
			req := &Request{Op: OpCheck, Name: name, Sub: sub, Value: value, Stored: p.Stored}
			if err := g(req); err == nil {
				granted = req.Granted
			}
		} else {
			granted = matchesAny(p.Values[sub], value) || matchesAny(p.Values[""], value)
		}
	}
	if !granted && r.metrics != nil {
		r.metrics.PledgeDenials.WithLabelValues(name).Inc()
	}
	return granted
}

// Check is like Has but returns a DeniedError tagged with the
// permission name, for callers that want catch-able failures.
func (r *Registry) Check(name, sub, value string) error {
	if r.Has(name, sub, value) {
		return nil
	}
	return &DeniedError{Name: name}
}

// Seal freezes every current and future permission. There is no
// unseal.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	for _, p := range r.perms {
		p.Sealed = true
	}
	rtlog.For("pledge").Info().Msg("permissions sealed")
}

func matchesAny(patterns []string, value string) bool {
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			if pat == value {
				return true
			}
			continue
		}
		if g.Match(value) {
			return true
		}
	}
	return false
}

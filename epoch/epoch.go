// Package epoch implements the scoped epoch-protection guard of §4.5: a
// coarse-grained safe-memory-reclamation domain that a session must be
// registered "active" in for the duration of any operation touching the
// log or lock table. Modeled as an RAII-style guard per §9's design note,
// the same pattern the teacher uses for every close()-on-exit resource
// (fileDirectIO.close, HandlePool.Dispose): acquire on entry, guaranteed
// release on every exit path.
package epoch

import (
	"sync/atomic"

	"github.com/sharedcode/lss"
)

// Domain is the store-wide epoch domain sessions register against. A
// LockableSession owns exactly one protection flag at a time (§4.5: "each
// session is owned by one logical task at a time").
type Domain struct {
	current int64 // monotonically advancing epoch counter
}

// NewDomain constructs a fresh epoch domain.
func NewDomain() *Domain {
	return &Domain{}
}

// Advance bumps the domain's current epoch and returns the new value.
// Used by the store when it needs to separate generations of protected
// work (e.g. around a checkpoint boundary); unrelated to per-session
// protection bookkeeping.
func (d *Domain) Advance() int64 {
	return atomic.AddInt64(&d.current, 1)
}

// Current returns the domain's current epoch value.
func (d *Domain) Current() int64 {
	return atomic.LoadInt64(&d.current)
}

// Guard is a single session's scoped epoch protection. It is not safe for
// concurrent use — a session's two-phase locking state machine is not
// thread-safe either (§5), and a Guard is owned by the same single logical
// task.
type Guard struct {
	domain    *Domain
	protected bool
	epoch     int64
}

// NewGuard returns an unprotected Guard bound to domain.
func NewGuard(domain *Domain) *Guard {
	return &Guard{domain: domain}
}

// Resume registers the current logical task as active in the domain's
// epoch (§4.5 "resume_thread()"). It is an EpochProtocolViolation to Resume
// a Guard that is already protected — nested protection is never legal
// (§4.5 assertion floor).
func (g *Guard) Resume() error {
	if g.protected {
		return lss.Error{Code: lss.EpochProtocolViolation, Err: errAlreadyProtected}
	}
	g.protected = true
	g.epoch = g.domain.Current()
	return nil
}

// Suspend releases epoch protection (§4.5 "suspend_thread()"). It is a
// no-op if the guard is not currently protected, so callers can always
// defer it unconditionally after a successful Resume.
func (g *Guard) Suspend() {
	g.protected = false
}

// Protected reports whether this guard currently holds epoch protection —
// the basis for the "not already protected" assertion floor required
// outside BeginLockable/EndLockable (§4.5).
func (g *Guard) Protected() bool {
	return g.protected
}

// Enter runs fn with epoch protection held for its duration, guaranteeing
// Suspend runs on every exit path including a panic unwinding through fn.
// This is the scoped-acquisition idiom §9 calls for.
func Enter(g *Guard, fn func() error) error {
	if err := g.Resume(); err != nil {
		return err
	}
	defer g.Suspend()
	return fn()
}

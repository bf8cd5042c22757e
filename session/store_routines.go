package session

import "context"

// StoreRoutines is the seam a LockableSession delegates into after taking
// its epoch guard and lock-protocol assertions (§4.6: "delegate to the
// store's internal routine passing the session-bound functions adapter").
// The store's internal implementation is out of scope (§1); tests supply a
// fake satisfying this interface.
type StoreRoutines[TK any, TV any] interface {
	Read(ctx context.Context, key TK, fns Functions[TK, TV]) error
	ReadAtAddress(ctx context.Context, address int64, fns Functions[TK, TV]) error
	Upsert(ctx context.Context, key TK, value TV, fns Functions[TK, TV]) error
	RMW(ctx context.Context, key TK, fns Functions[TK, TV]) error
	Delete(ctx context.Context, key TK, fns Functions[TK, TV]) error
	Refresh(ctx context.Context) error
	CompletePending(ctx context.Context, wait bool) error
}

package scanner

import "sync/atomic"

// Token is a cooperative cancellation signal captured when a job is created.
// It fires once the engine shuts down or the live generation moves past the
// one it was issued for.
type Token struct {
	gen  uint64
	live *atomic.Uint64
	quit *atomic.Bool
}

// NewToken binds gen to the live generation counter and the shutdown flag.
// Either pointer may be nil.
func NewToken(gen uint64, live *atomic.Uint64, quit *atomic.Bool) Token {
	return Token{gen: gen, live: live, quit: quit}
}

// Generation returns the generation the token was issued for.
func (t Token) Generation() uint64 { return t.gen }

// Cancelled reports whether the work guarded by t should stop.
func (t Token) Cancelled() bool {
	if t.quit != nil && t.quit.Load() {
		return true
	}
	return t.live != nil && t.live.Load() != t.gen
}

package packet

import (
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// requestKey indexes the flood guard's admission cache. It never crosses
// the network; it only exists to dedupe repeat connectionless requests
// in-process.
type requestKey struct {
	RemoteAddr string
	Command    Command
}

func hashRequestKey(k requestKey) uint64 {
	var h xxhash.Digest
	h.WriteString(k.RemoteAddr)
	h.Write([]byte{byte(k.Command)})
	return h.Sum64()
}

// FloodGuard is a bounded, cost-aware admission filter over recent
// connectionless requests, keyed by (remote address, command). It is safe
// for concurrent use by multiple goroutines, since the tinylfu cache it
// wraps is internally synchronized.
type FloodGuard struct {
	cache *tinylfu.T[requestKey, struct{}]
}

// NewFloodGuard returns a FloodGuard admitting up to capacity distinct
// (address, command) pairs before eviction pressure begins.
func NewFloodGuard(capacity int) *FloodGuard {
	g := &FloodGuard{}
	g.cache = tinylfu.New[requestKey, struct{}](capacity, capacity*10, hashRequestKey, tinylfu.OnEvict(g.onEvict))
	return g
}

// Admit reports whether cmd from remoteAddr should be let through. It
// returns true the first time a given pair is seen within the guard's
// window and false on an immediate repeat. connect and ipAuthorize are
// always admitted: a legitimate reconnect legitimately repeats connect.
func (g *FloodGuard) Admit(remoteAddr string, cmd Command) bool {
	if cmd == CmdConnect || cmd == CmdIPAuthorize {
		return true
	}
	key := requestKey{RemoteAddr: remoteAddr, Command: cmd}
	if _, seen := g.cache.Get(key); seen {
		return false
	}
	g.cache.Add(key, struct{}{})
	return true
}

// onEvict is purely diagnostic: an evicted entry never influences admission,
// it only leaves a trace that a remote address/command pair aged out of the
// sampled cache under load. Deliberately slog.Debug, not Warn: the reference
// codebase's caches warn on eviction, but here eviction is routine, not a
// capacity problem worth surfacing by default.
func (g *FloodGuard) onEvict(k requestKey, _ struct{}) {
	slog.Debug("floodguard evict", "remote_addr", k.RemoteAddr, "command", k.Command)
}

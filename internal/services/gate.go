package services

import (
	"hash/fnv"

	"github.com/Thisisbailin/Script2Video-sub002/internal/config"
)

// RolloutGate decides whether sync features are enabled for a given user.
// The decision is deterministic per user so a user does not flap between
// enabled and disabled across requests.
type RolloutGate struct {
	percent   int
	allowlist map[string]bool
}

// NewRolloutGate builds a gate from the configured rollout percentage and
// allowlist.
func NewRolloutGate(cfg *config.Config) *RolloutGate {
	g := &RolloutGate{
		percent:   cfg.SyncRolloutPercent,
		allowlist: make(map[string]bool, len(cfg.SyncRolloutAllowlist)),
	}
	for _, id := range cfg.SyncRolloutAllowlist {
		g.allowlist[id] = true
	}
	return g
}

// Enabled reports whether the user falls inside the rollout. Allowlisted
// users are always in; everyone else is bucketed by a stable hash of their
// user id.
func (g *RolloutGate) Enabled(userID string) bool {
	if g.allowlist[userID] {
		return true
	}
	if g.percent >= 100 {
		return true
	}
	if g.percent <= 0 {
		return false
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < g.percent
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/agent"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// THREAD MEMORY
// ══════════════════════════════════════════════════════════════════════════════

// maxThreadTurns caps the number of remembered turns per thread.
// Older turns are trimmed so prompts stay bounded.
const maxThreadTurns = 40

// ThreadMemory implements agent.Memory on top of Redis lists.
// Each thread is a list of JSON-encoded turns with an idle TTL.
type ThreadMemory struct {
	cache *Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewThreadMemory creates a thread memory store with the default idle TTL.
func NewThreadMemory(cache *Cache, log *logger.Logger) *ThreadMemory {
	return &ThreadMemory{
		cache: cache,
		ttl:   TTLThreadMemory,
		log:   log.With(logger.Component("thread_memory")),
	}
}

// History returns the remembered turns for a thread, oldest first.
func (m *ThreadMemory) History(ctx context.Context, threadID string) ([]agent.Turn, error) {
	raw, err := m.cache.LRange(ctx, ThreadKey(threadID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread history: %w", err)
	}

	turns := make([]agent.Turn, 0, len(raw))
	for _, item := range raw {
		var t agent.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			// Corrupt entries are skipped, not fatal
			m.log.Warn("dropping corrupt thread turn", logger.ThreadID(threadID), logger.Err(err))
			continue
		}
		turns = append(turns, t)
	}

	return turns, nil
}

// Append stores turns at the end of a thread and refreshes its TTL.
func (m *ThreadMemory) Append(ctx context.Context, threadID string, turns ...agent.Turn) error {
	key := ThreadKey(threadID)

	for _, t := range turns {
		if err := m.cache.RPush(ctx, key, t); err != nil {
			return fmt.Errorf("failed to append thread turn: %w", err)
		}
	}

	if err := m.cache.LTrim(ctx, key, -maxThreadTurns, -1); err != nil {
		m.log.Warn("thread trim failed", logger.ThreadID(threadID), logger.Err(err))
	}

	if err := m.cache.Expire(ctx, key, m.ttl); err != nil {
		m.log.Warn("thread expire failed", logger.ThreadID(threadID), logger.Err(err))
	}

	return nil
}

package websocket

import (
	"sync"
	"time"

	"chat-relay-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// Registry is the process-wide map from session key to the one live
// session for that key. The live map is the ground truth for session
// identity; the cache only tracks the idle-retention window. Sessions
// idle beyond the window are evicted and closed; attach/detach races
// across connections are settled under one critical section per lookup.
type Registry struct {
	mu       sync.Mutex
	live     map[string]*Session
	sessions *cache.Cache
	deps     SessionDeps
	logger   logger.ILogger
}

func NewRegistry(deps SessionDeps, retention time.Duration, log logger.ILogger) *Registry {
	r := &Registry{
		live:     make(map[string]*Session),
		sessions: cache.New(retention, 10*time.Minute),
		deps:     deps,
		logger:   log,
	}

	// Retention only applies to sessions with no attached connections:
	// a session that expires while still connected is re-armed instead
	// of being torn down under the client.
	r.sessions.OnEvicted(func(key string, value interface{}) {
		session := value.(*Session)
		if session.ConnCount() > 0 {
			r.sessions.SetDefault(key, session)
			return
		}
		r.reap(key, session)
	})

	return r
}

// GetOrCreate returns the session for key, creating it on first contact.
// Every call refreshes the retention window.
func (r *Registry) GetOrCreate(key, userId, projectId string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value, found := r.sessions.Get(key); found {
		session := value.(*Session)
		r.sessions.SetDefault(key, session)
		return session
	}

	// The cache reports an entry as missing the instant its window
	// lapses, ahead of the janitor run that would re-arm it. A session
	// that still has attached connections is live regardless of the
	// cache's view; handing out a fresh session here would shadow its
	// in-flight streams.
	if session, ok := r.live[key]; ok {
		if session.ConnCount() > 0 {
			r.sessions.SetDefault(key, session)
			return session
		}
		// Idle past retention: retire it before minting a replacement.
		delete(r.live, key)
		session.Close()
	}

	session := NewSession(key, userId, projectId, r.deps)
	r.live[key] = session
	r.sessions.SetDefault(key, session)
	r.logger.Info("Registry", "Session created", map[string]interface{}{
		"session":    key,
		"user_id":    userId,
		"project_id": projectId,
	})
	return session
}

// Get returns the live session for key, if any.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value, found := r.sessions.Get(key); found {
		return value.(*Session), true
	}
	if session, ok := r.live[key]; ok && session.ConnCount() > 0 {
		return session, true
	}
	return nil, false
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close tears down every live session.
func (r *Registry) Close() {
	r.mu.Lock()
	live := r.live
	r.live = make(map[string]*Session)
	r.mu.Unlock()

	for key, session := range live {
		// Closing first empties the conn set, so the eviction hook
		// retires the entry instead of re-arming it.
		session.Close()
		r.sessions.Delete(key)
	}
}

// reap retires an expired idle session. Runs from the cache's eviction
// hook, never while r.mu is held by the same goroutine.
func (r *Registry) reap(key string, session *Session) {
	r.mu.Lock()
	if r.live[key] == session {
		delete(r.live, key)
	}
	r.mu.Unlock()

	session.Close()
	r.logger.Info("Registry", "Session expired", map[string]interface{}{
		"session": key,
	})
}

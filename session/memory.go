package session

import (
	"context"
	"net/http"
	"sync"
)

// MemoryStore keeps the session as an in-process cookie jar.
type MemoryStore struct {
	mu      sync.RWMutex
	cookies map[string]*http.Cookie
	opts    options
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{cookies: make(map[string]*http.Cookie), opts: newOptions(opts)}
}

func (m *MemoryStore) Get(_ context.Context, name string) (string, bool, error) {
	if _, err := TTL(name); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cookies[name]
	if !ok || !m.opts.now().Before(c.Expires) {
		return "", false, nil
	}
	return c.Value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, pair TokenPair) error {
	now := m.opts.now()
	at, err := NewCookie(AccessTokenName, pair.AccessToken, now, m.opts.secure)
	if err != nil {
		return err
	}
	rt, err := NewCookie(RefreshTokenName, pair.RefreshToken, now, m.opts.secure)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cookies[at.Name] = at
	m.cookies[rt.Name] = rt
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SetUserID(_ context.Context, uid string) error {
	c, err := NewCookie(UserIDName, uid, m.opts.now(), m.opts.secure)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cookies[c.Name] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	for _, name := range Names {
		delete(m.cookies, name)
	}
	m.mu.Unlock()
	return nil
}

// Cookies returns copies of the live cookies, ready to be written to a
// browser with http.SetCookie.
func (m *MemoryStore) Cookies() []*http.Cookie {
	now := m.opts.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*http.Cookie, 0, len(m.cookies))
	for _, name := range Names {
		c, ok := m.cookies[name]
		if !ok || !now.Before(c.Expires) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}

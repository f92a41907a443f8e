package chat

import "sort"

// Presence maps logged-in identities to their live sessions. It is only
// touched from the hub goroutine and needs no locking.
type Presence struct {
	sessions map[string]*Session
}

func NewPresence() *Presence {
	return &Presence{sessions: make(map[string]*Session)}
}

// Register claims login for s. A login already held by another session is
// rejected with ErrAlreadyOnline; re-registering the same session is a no-op.
func (p *Presence) Register(login string, s *Session) error {
	if cur, ok := p.sessions[login]; ok && cur != s {
		return ErrAlreadyOnline
	}
	p.sessions[login] = s
	return nil
}

// Deregister removes login only while it still points at s, so a late
// disconnect cannot evict a newer session for the same identity.
func (p *Presence) Deregister(login string, s *Session) bool {
	cur, ok := p.sessions[login]
	if !ok || cur != s {
		return false
	}
	delete(p.sessions, login)
	return true
}

func (p *Presence) Lookup(login string) (*Session, bool) {
	s, ok := p.sessions[login]
	return s, ok
}

// List returns online logins other than excluding, sorted.
func (p *Presence) List(excluding string) []string {
	names := make([]string, 0, len(p.sessions))
	for name := range p.sessions {
		if name != excluding {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (p *Presence) Len() int {
	return len(p.sessions)
}

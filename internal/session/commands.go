package session

import "channel-chat-service/internal/models"

// Command pairs a forward mutation with its inverse, so an optimistic
// update can be rolled back mechanically without re-deriving the prior
// state at failure time.
type Command struct {
	Apply  func()
	Invert func()
}

// reactionCommand captures the user's current reaction on the message and
// builds the toggle plus its exact inverse. The bool is false when the
// message is not in the view.
func (s *Session) reactionCommand(messageID, emoji string) (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[messageID]
	if !ok {
		return Command{}, false
	}
	prior, had := s.messages[idx].Reactions[s.username]

	return Command{
		Apply: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			idx, ok := s.index[messageID]
			if !ok {
				return
			}
			m := &s.messages[idx]
			if m.Reactions == nil {
				m.Reactions = models.ReactionMap{}
			}
			if m.Reactions[s.username] == emoji {
				delete(m.Reactions, s.username)
			} else {
				m.Reactions[s.username] = emoji
			}
		},
		Invert: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			idx, ok := s.index[messageID]
			if !ok {
				return
			}
			m := &s.messages[idx]
			if m.Reactions == nil {
				m.Reactions = models.ReactionMap{}
			}
			if had {
				m.Reactions[s.username] = prior
			} else {
				delete(m.Reactions, s.username)
			}
		},
	}, true
}

// seenCommand builds the seen-by addition and its inverse. The last return
// reports that the user is already in the set, making the whole operation
// a no-op.
func (s *Session) seenCommand(messageID string) (Command, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[messageID]
	if !ok {
		return Command{}, false, false
	}
	if s.messages[idx].SeenBy.Contains(s.username) {
		return Command{}, true, true
	}

	return Command{
		Apply: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			idx, ok := s.index[messageID]
			if !ok {
				return
			}
			m := &s.messages[idx]
			if !m.SeenBy.Contains(s.username) {
				m.SeenBy = append(m.SeenBy, s.username)
			}
		},
		Invert: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			idx, ok := s.index[messageID]
			if !ok {
				return
			}
			m := &s.messages[idx]
			kept := m.SeenBy[:0]
			for _, u := range m.SeenBy {
				if u != s.username {
					kept = append(kept, u)
				}
			}
			m.SeenBy = kept
		},
	}, true, false
}

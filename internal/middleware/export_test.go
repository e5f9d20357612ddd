package middleware

import "time"

func (s *MemoryRateLimitStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

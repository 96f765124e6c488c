package navigator

import (
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
)

// Stack is the active browsing context stack of a navigation session.
type Stack struct {
	mu     sync.Mutex
	frames []string
}

// Enter makes name the active context. The returned func restores the context that was
// active before, it's safe to call it more than once.
func (s *Stack) Enter(name string) (leave func()) {
	s.mu.Lock()
	depth := len(s.frames)
	s.frames = append(s.frames, name)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if len(s.frames) > depth {
				s.frames = s.frames[:depth]
			}
		})
	}
}

// Current returns the active context, the top document when nothing was entered.
func (s *Stack) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return browser.TopContext
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of entered contexts.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

package shell

import (
	"fmt"
	"sync"
)

// Stage is the application surface: it holds at most one mounted view.
type Stage struct {
	mu      sync.RWMutex
	mounted string
	history []string
}

// NewStage creates an empty stage.
func NewStage() *Stage {
	return &Stage{}
}

// Attach mounts the view of appID, replacing any other.
func (s *Stage) Attach(appID string) error {
	if appID == "" {
		return fmt.Errorf("attach: empty application id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = appID
	s.history = append(s.history, appID)
	return nil
}

// Detach unmounts the view of appID if it is the mounted one.
func (s *Stage) Detach(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted == appID {
		s.mounted = ""
	}
	return nil
}

// Mounted returns the id of the mounted view, or "".
func (s *Stage) Mounted() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// History lists every attach in order.
func (s *Stage) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

//go:build !unix

package security

import (
	"runtime"
	"sync"
)

// Secret is a byte buffer that is zeroed when destroyed.
type Secret struct {
	mu   sync.Mutex
	data []byte
}

// NewSecret copies data and wipes the original. Memory locking is not
// available on this platform.
func NewSecret(data []byte) *Secret {
	s := &Secret{data: make([]byte, len(data))}
	copy(s.data, data)
	Wipe(data)
	runtime.SetFinalizer(s, (*Secret).Destroy)
	return s
}

func (s *Secret) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Secret) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Secret) Locked() bool {
	return false
}

func (s *Secret) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		Wipe(s.data)
		s.data = nil
	}
}

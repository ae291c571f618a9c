//go:build unix

// Package security holds key material and secret files for otpentry.
//
// Secret keeps a key in memory that is locked against swapping where the
// process is allowed to, and zeroed on Destroy. WriteFileAtomic replaces files
// through a private temporary file and a rename.
package security

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// Secret is a byte buffer that is zeroed when destroyed.
type Secret struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// NewSecret copies data into locked memory and wipes the original.
func NewSecret(data []byte) *Secret {
	s := &Secret{data: make([]byte, len(data))}
	copy(s.data, data)
	Wipe(data)

	// mlock fails without CAP_IPC_LOCK or over RLIMIT_MEMLOCK; the key still
	// works unlocked.
	if len(s.data) > 0 && unix.Mlock(s.data) == nil {
		s.locked = true
	}

	runtime.SetFinalizer(s, (*Secret).Destroy)
	return s
}

// Bytes returns the key. Do not retain the slice past Destroy.
func (s *Secret) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Len returns the key length, 0 after Destroy.
func (s *Secret) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Locked reports whether the key is held in locked memory.
func (s *Secret) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Destroy zeroes and unlocks the key. It is safe to call more than once.
func (s *Secret) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}
	Wipe(s.data)
	if s.locked {
		unix.Munlock(s.data)
		s.locked = false
	}
	s.data = nil
}

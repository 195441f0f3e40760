package arconnect

import "fmt"

const semaFree = -1

// Semaphores is a set of inter-core hardware semaphores. Each semaphore is
// free or owned by exactly one core.
//
// Semaphores are only touched from the unit's command path.
type Semaphores struct {
	owners []int
}

// NewSemaphores creates n free semaphores.
func NewSemaphores(n int) *Semaphores {
	s := &Semaphores{owners: make([]int, n)}
	s.Reset()
	return s
}

// Len returns the number of semaphores.
func (s *Semaphores) Len() int {
	return len(s.owners)
}

func (s *Semaphores) index(idx uint16) (int, error) {
	if int(idx) >= len(s.owners) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSemaphoreIndex, idx)
	}
	return int(idx), nil
}

// Claim takes a semaphore for core if it is free. It reports whether core
// owns the semaphore afterwards.
func (s *Semaphores) Claim(core CoreID, idx uint16) (bool, error) {
	i, err := s.index(idx)
	if err != nil {
		return false, err
	}

	if s.owners[i] == semaFree {
		s.owners[i] = int(core)
	}
	return s.owners[i] == int(core), nil
}

// Release frees a semaphore owned by core. Releasing a semaphore owned by
// another core does nothing.
func (s *Semaphores) Release(core CoreID, idx uint16) error {
	i, err := s.index(idx)
	if err != nil {
		return err
	}

	if s.owners[i] == int(core) {
		s.owners[i] = semaFree
	}
	return nil
}

// ForceRelease frees a semaphore whoever owns it.
func (s *Semaphores) ForceRelease(idx uint16) error {
	i, err := s.index(idx)
	if err != nil {
		return err
	}

	s.owners[i] = semaFree
	return nil
}

// Owner returns the owning core of a semaphore and whether it is owned.
func (s *Semaphores) Owner(idx uint16) (CoreID, bool) {
	i, err := s.index(idx)
	if err != nil || s.owners[i] == semaFree {
		return 0, false
	}
	return CoreID(s.owners[i]), true
}

// Reset frees every semaphore.
func (s *Semaphores) Reset() {
	for i := range s.owners {
		s.owners[i] = semaFree
	}
}

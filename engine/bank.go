package engine

import "sync/atomic"

// BankState holds the active bank. Only the pipeline goroutine writes it;
// readers on other goroutines (the monitor) see a consistent value.
type BankState struct {
	active atomic.Int64
}

// NewBankState creates a bank state starting at initial
func NewBankState(initial int) *BankState {
	s := &BankState{}
	s.active.Store(int64(initial))
	return s
}

// Active returns the current bank
func (s *BankState) Active() int {
	return int(s.active.Load())
}

// Set switches the active bank
func (s *BankState) Set(bank int) {
	s.active.Store(int64(bank))
}

// Package memstore keeps repository state in memory with serialized, all-or-nothing transactions.
package memstore

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var ErrTxClosed = errors.New("transaction is already closed")

// State is a value that can be copied for a transaction.
type State[T any] interface {
	Clone() T
}

// Store holds a state of type T. A transaction holds the write lock from Begin until Commit or Rollback.
type Store[T State[T]] struct {
	mu    sync.RWMutex
	state T
}

func New[T State[T]](initial T) *Store[T] {
	return &Store[T]{state: initial}
}

// Read runs fn with the committed state. fn must not retain or modify it.
func (s *Store[T]) Read(fn func(state T) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// Write runs fn on the committed state as a single-statement transaction.
func (s *Store[T]) Write(fn func(state T) error) error {
	tx := s.Begin()
	defer tx.Rollback()
	if err := fn(tx.State()); err != nil {
		return err
	}
	return tx.Commit()
}

// Begin starts a transaction. It blocks while another transaction is open.
//
// The whole state is copied on the first write of the transaction, so a write costs O(state).
// The memory backend targets development and tests; use postgres for large ledgers.
func (s *Store[T]) Begin() *Tx[T] {
	s.mu.Lock()
	return &Tx[T]{store: s}
}

type Tx[T State[T]] struct {
	store  *Store[T]
	state  T
	copied bool
	closed bool
}

// View returns the state as seen by the transaction for reading. It must not be modified.
func (tx *Tx[T]) View() T {
	if tx.copied {
		return tx.state
	}
	return tx.store.state
}

// State returns the working copy of the transaction, copying the committed state on first use.
func (tx *Tx[T]) State() T {
	if !tx.copied {
		tx.state = tx.store.state.Clone()
		tx.copied = true
	}
	return tx.state
}

// Commit publishes the working copy, if any, and releases the store.
func (tx *Tx[T]) Commit() error {
	if tx.closed {
		return errors.WithStack(ErrTxClosed)
	}
	if tx.copied {
		tx.store.state = tx.state
	}
	tx.closed = true
	tx.store.mu.Unlock()
	return nil
}

// Rollback discards the working copy. It's a no-op after Commit.
func (tx *Tx[T]) Rollback() {
	if tx.closed {
		return
	}
	tx.closed = true
	tx.store.mu.Unlock()
}

// Closed reports whether the transaction was committed or rolled back.
func (tx *Tx[T]) Closed() bool {
	return tx.closed
}

package memstore

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters map[string]int

func (c counters) Clone() counters {
	dup := make(counters, len(c))
	for k, v := range c {
		dup[k] = v
	}
	return dup
}

func value(t *testing.T, s *Store[counters], key string) int {
	var v int
	require.NoError(t, s.Read(func(state counters) error {
		v = state[key]
		return nil
	}))
	return v
}

func TestRollbackDiscardsChanges(t *testing.T) {
	s := New(counters{})

	tx := s.Begin()
	tx.State()["a"] = 1
	tx.Rollback()
	assert.Equal(t, 0, value(t, s, "a"))

	tx = s.Begin()
	tx.State()["a"] = 2
	require.NoError(t, tx.Commit())
	tx.Rollback()
	assert.Equal(t, 2, value(t, s, "a"))

	assert.True(t, errors.Is(tx.Commit(), ErrTxClosed))
}

func TestWriteFailure(t *testing.T) {
	s := New(counters{"a": 1})
	err := s.Write(func(state counters) error {
		state["a"] = 5
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, value(t, s, "a"))
}

func TestTransactionsAreSerialized(t *testing.T) {
	s := New(counters{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := s.Begin()
			defer tx.Rollback()
			tx.State()["n"]++
			_ = tx.Commit()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, value(t, s, "n"))
}

type cloneCounter struct {
	clones *int
	values counters
}

func (c cloneCounter) Clone() cloneCounter {
	*c.clones++
	return cloneCounter{clones: c.clones, values: c.values.Clone()}
}

func TestStateIsCopiedOnFirstWrite(t *testing.T) {
	clones := 0
	s := New(cloneCounter{clones: &clones, values: counters{"a": 1}})

	tx := s.Begin()
	assert.Equal(t, 1, tx.View().values["a"])
	require.NoError(t, tx.Commit())
	assert.Zero(t, clones)

	tx = s.Begin()
	tx.State().values["a"] = 2
	tx.State().values["b"] = 3
	assert.Equal(t, 2, tx.View().values["a"])
	assert.Equal(t, 1, clones)
	tx.Rollback()

	require.NoError(t, s.Read(func(state cloneCounter) error {
		assert.Equal(t, counters{"a": 1}, state.values)
		return nil
	}))

	tx = s.Begin()
	tx.State().values["a"] = 4
	require.NoError(t, tx.Commit())
	assert.Equal(t, 2, clones)
	require.NoError(t, s.Read(func(state cloneCounter) error {
		assert.Equal(t, 4, state.values["a"])
		return nil
	}))
}

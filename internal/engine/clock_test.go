package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_Next(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())
}

func TestSequence_ResumeAndObserve(t *testing.T) {
	s := NewSequenceAt(10)
	assert.Equal(t, int64(11), s.Next())

	s.Observe(5)
	assert.Equal(t, int64(11), s.Current(), "observe never lowers")

	s.Observe(20)
	assert.Equal(t, int64(21), s.Next())
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence()
	const n = 100

	var wg sync.WaitGroup
	seen := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = s.Next()
		}(i)
	}
	wg.Wait()

	unique := make(map[int64]bool, n)
	for _, v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, n)
	assert.Equal(t, int64(n), s.Current())
}

func TestSequence_CommitConsumesOnlyOnSuccess(t *testing.T) {
	s := NewSequence()

	err := s.Commit(func(seq int64) error {
		assert.Equal(t, int64(1), seq)
		return errors.New("append failed")
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), s.Current())

	require.NoError(t, s.Commit(func(seq int64) error {
		assert.Equal(t, int64(1), seq)
		return nil
	}))
	assert.Equal(t, int64(1), s.Current())
}

func TestSequence_CommitsLandInOrder(t *testing.T) {
	s := NewSequence()
	const n = 200

	var mu sync.Mutex
	var written []int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Commit(func(seq int64) error {
				mu.Lock()
				written = append(written, seq)
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Len(t, written, n)
	for i, seq := range written {
		assert.Equal(t, int64(i+1), seq)
	}
}

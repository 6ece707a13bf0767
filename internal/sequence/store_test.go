package sequence

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/autoclick/internal/models"
)

func step(x, y int) models.ClickStep {
	return models.ClickStep{X: x, Y: y, Button: models.ButtonLeft, Delay: 1}
}

func TestStoreAppendReplaceRemove(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(step(1, 1)))
	require.NoError(t, s.Append(step(2, 2)))
	require.NoError(t, s.Append(step(3, 3)))
	require.Equal(t, 3, s.Len())

	require.NoError(t, s.Replace(1, step(20, 20)))
	got, err := s.At(1)
	require.NoError(t, err)
	require.Equal(t, 20, got.X)

	removed, err := s.Remove(0)
	require.NoError(t, err)
	require.Equal(t, 1, removed.X)
	require.Equal(t, []models.ClickStep{step(20, 20), step(3, 3)}, s.Steps())
}

func TestStoreIndexErrors(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(step(1, 1)))

	_, err := s.Remove(1)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))

	err = s.Replace(-1, step(1, 1))
	require.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = s.At(5)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestStoreAppendIsStrict(t *testing.T) {
	s := NewStore()
	err := s.Append(models.ClickStep{X: 1, Y: 1, Button: "up"})
	require.True(t, errors.Is(err, models.ErrValidation))
	require.Equal(t, 0, s.Len())
}

func TestStoreAppendCap(t *testing.T) {
	s := NewStore()
	for i := 0; i < models.MaxSequenceLength; i++ {
		require.NoError(t, s.Append(step(i, i)))
	}
	err := s.Append(step(0, 0))
	require.True(t, errors.Is(err, ErrSequenceFull))
	require.Equal(t, models.MaxSequenceLength, s.Len())
}

func TestStoreStepsReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(step(1, 1)))
	steps := s.Steps()
	steps[0].X = 500

	got, err := s.At(0)
	require.NoError(t, err)
	require.Equal(t, 1, got.X)
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(step(1, 1)))
	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.Steps())
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Append(step(i, j))
				_ = s.Steps()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 400, s.Len())
}

package discovery

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueName(prefix string) string {
	return "discovery.test." + prefix + "." + uuid.NewString()
}

func TestPublishAndLookup(t *testing.T) {
	name := uniqueName("publish")
	_, ok := Lookup(name)
	require.False(t, ok)

	value := &struct{ n int }{n: 7}
	require.NoError(t, Publish(name, value))

	got, ok := Lookup(name)
	require.True(t, ok)
	assert.Same(t, value, got)

	err := Publish(name, "again")
	require.ErrorIs(t, err, ErrNameTaken)
	got, _ = Lookup(name)
	assert.Same(t, value, got)
}

func TestPublish_ConcurrentHasOneWinner(t *testing.T) {
	name := uniqueName("race")
	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if Publish(name, i) == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestLock_IsSharedPerName(t *testing.T) {
	name := uniqueName("lock")
	unlock, err := Lock(name)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release, err := Lock(name)
		if err == nil {
			release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock must wait for the first holder")
	default:
	}
	unlock()
	<-acquired

	other, err := Lock(uniqueName("other"))
	require.NoError(t, err)
	other()
}

func TestLock_RejectsForeignValue(t *testing.T) {
	name := uniqueName("foreign")
	require.NoError(t, Publish(name+lockSuffix, "not a mutex"))
	_, err := Lock(name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds string")
}

func TestNames(t *testing.T) {
	prefix := uniqueName("names")
	require.NoError(t, Publish(prefix+".b", 1))
	require.NoError(t, Publish(prefix+".a", 2))
	unlock, err := Lock(prefix + ".a")
	require.NoError(t, err)
	unlock()

	assert.Equal(t, []string{prefix + ".a", prefix + ".b"}, Names(prefix))
}

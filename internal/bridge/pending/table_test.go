package pending

import (
	"fmt"
	"sync"
	"testing"

	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndResolve(t *testing.T) {
	table := New(nil)
	cid := id.NewCorrelationID()

	ch, err := table.Register(cid)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	assert.True(t, table.Resolve(Success(cid, `{"a":1}`)))
	assert.Equal(t, 0, table.Len())

	got := <-ch
	assert.Equal(t, cid, got.ID)
	assert.Equal(t, `{"a":1}`, got.Value)
	assert.False(t, got.Failed)
}

func TestResolveUnknownIsNoop(t *testing.T) {
	table := New(nil)
	known := id.NewCorrelationID()
	ch, err := table.Register(known)
	require.NoError(t, err)

	assert.False(t, table.Resolve(Success("nope", "1")))
	assert.False(t, table.Resolve(Success("", "1")))
	assert.Equal(t, 1, table.Len())

	select {
	case <-ch:
		t.Fatal("unrelated waiter must not be woken")
	default:
	}
}

func TestResolveTwiceDeliversOnce(t *testing.T) {
	table := New(nil)
	cid := id.NewCorrelationID()
	ch, err := table.Register(cid)
	require.NoError(t, err)

	assert.True(t, table.Resolve(Failure(cid, "boom")))
	assert.False(t, table.Resolve(Success(cid, "late")))

	got := <-ch
	assert.True(t, got.Failed)
	assert.Equal(t, "boom", got.Err)
}

func TestRegisterDuplicate(t *testing.T) {
	table := New(nil)
	cid := id.NewCorrelationID()

	_, err := table.Register(cid)
	require.NoError(t, err)
	_, err = table.Register(cid)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestEvict(t *testing.T) {
	table := New(nil)
	cid := id.NewCorrelationID()
	_, err := table.Register(cid)
	require.NoError(t, err)

	assert.True(t, table.Evict(cid))
	assert.False(t, table.Evict(cid))
	assert.False(t, table.Resolve(Success(cid, "late")), "evicted entries must not resolve")
	assert.Equal(t, 0, table.Len())
}

func TestCloseWakesWaiters(t *testing.T) {
	table := New(nil)
	ch, err := table.Register(id.NewCorrelationID())
	require.NoError(t, err)

	table.Close()
	table.Close()

	_, ok := <-ch
	assert.False(t, ok)

	_, err = table.Register(id.NewCorrelationID())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestObserverSeesSize(t *testing.T) {
	var sizes []int
	table := New(func(n int) { sizes = append(sizes, n) })

	a, b := id.NewCorrelationID(), id.NewCorrelationID()
	_, _ = table.Register(a)
	_, _ = table.Register(b)
	table.Resolve(Success(a, "1"))
	table.Evict(b)

	assert.Equal(t, []int{1, 2, 1, 0}, sizes)
}

func TestConcurrentCorrelation(t *testing.T) {
	table := New(nil)
	const n = 200

	ids := make([]id.CorrelationID, n)
	chans := make([]<-chan Completion, n)
	for i := range ids {
		ids[i] = id.NewCorrelationID()
		ch, err := table.Register(ids[i])
		require.NoError(t, err)
		chans[i] = ch
	}

	// Resolve in reverse order from many goroutines
	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table.Resolve(Success(ids[i], fmt.Sprintf("%d", i)))
		}(i)
	}
	wg.Wait()

	for i, ch := range chans {
		got := <-ch
		assert.Equal(t, ids[i], got.ID)
		assert.Equal(t, fmt.Sprintf("%d", i), got.Value)
	}
	assert.Equal(t, 0, table.Len())
}

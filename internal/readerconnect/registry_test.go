package readerconnect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, Config{}, nil)

	a := r.GetOrCreate("t1", "l1", "tok")
	b := r.GetOrCreate("t1", "l1", "")
	c := r.GetOrCreate("t1", "l2", "tok")
	d := r.GetOrCreate("t2", "l1", "tok")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.NotSame(t, a, d)
	assert.Equal(t, 3, r.Len())

	got, ok := r.Get("t1", "l2")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r := NewRegistry(&fakeDialer{}, Config{}, nil)

	var wg sync.WaitGroup
	sessions := make([]*Session, 64)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = r.GetOrCreate("tenant", "link", "tok")
			if i%8 == 0 {
				r.Len()
			}
		}(i)
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemoveDisconnects(t *testing.T) {
	d := &fakeDialer{}
	r := NewRegistry(d, Config{}, nil)

	s := r.GetOrCreate("t1", "l1", "tok")
	require.NoError(t, s.Connect(context.Background()))

	r.Remove("t1", "l1")

	assert.Equal(t, StateDisconnected, s.State())
	assert.Zero(t, r.Len())
	_, ok := r.Get("t1", "l1")
	assert.False(t, ok)

	// Removing an unknown pair is a no-op.
	r.Remove("t1", "nope")
}

func TestRegistryReplacesStaleSession(t *testing.T) {
	d := &fakeDialer{fail: errors.New("offline"), okDials: 1}
	sch := &scheduler{}
	r := NewRegistry(d, Config{}, nil, WithAfterFunc(sch.afterFunc))

	s := r.GetOrCreate("t1", "l1", "tok")
	require.NoError(t, s.Connect(context.Background()))

	d.last().Close()
	require.Eventually(t, func() bool { return sch.count() == 1 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		sch.fire(i)
	}
	require.True(t, s.Stale())
	assert.Zero(t, r.Len())

	fresh := r.GetOrCreate("t1", "l1", "tok")
	assert.NotSame(t, s, fresh)
	assert.False(t, fresh.Stale())
}

func TestRegistryClose(t *testing.T) {
	d := &fakeDialer{}
	r := NewRegistry(d, Config{}, nil)

	a := r.GetOrCreate("t1", "l1", "tok")
	b := r.GetOrCreate("t1", "l2", "tok")
	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, b.Connect(context.Background()))

	r.Close()

	assert.Zero(t, r.Len())
	assert.Equal(t, StateDisconnected, a.State())
	assert.Equal(t, StateDisconnected, b.State())
}

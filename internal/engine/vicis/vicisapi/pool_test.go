package vicisapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p := NewPool[int]()
	require.Equal(t, 0, p.Allocated())

	ptrs := make([]*int, 0, poolPageSize*3)
	for i := 0; i < poolPageSize*3; i++ {
		v := p.Allocate()
		*v = i
		ptrs = append(ptrs, v)
	}
	require.Equal(t, poolPageSize*3, p.Allocated())

	// Pointers handed out before the pool grew must still be valid.
	for i, ptr := range ptrs {
		require.Equal(t, i, *ptr)
		require.Equal(t, ptr, p.View(i))
	}

	p.Reset()
	require.Equal(t, 0, p.Allocated())
	v := p.Allocate()
	require.Equal(t, 0, *v)
}

func TestConfig(t *testing.T) {
	base := NewConfig()
	require.True(t, base.Workers() >= 1)
	require.Equal(t, 0, base.MaxInstructions())
	require.False(t, base.Verify())

	c := base.WithWorkers(0).WithMaxInstructions(10).WithVerify(true)
	require.Equal(t, 1, c.Workers())
	require.Equal(t, 10, c.MaxInstructions())
	require.True(t, c.Verify())

	// The original must not be modified.
	require.Equal(t, 0, base.MaxInstructions())
	require.False(t, base.Verify())
}

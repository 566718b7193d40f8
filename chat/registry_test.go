package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_JoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Join("conn-1", "r1")
	registry.Join("conn-1", "r1")

	req.Equal([]string{"conn-1"}, registry.MembersOf("r1"))
	req.Equal(1, registry.Rooms())
}

func TestRegistry_LeaveIsIdempotentAndRoomsDangle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Leaving a room never joined is a no-op
	registry.Leave("conn-1", "r1")
	req.Equal(0, registry.Rooms())

	registry.Join("conn-1", "r1")
	registry.Leave("conn-1", "r1")
	registry.Leave("conn-1", "r1")

	// The emptied room stays registered, membership is gone
	req.Equal(1, registry.Rooms())
	req.Empty(registry.MembersOf("r1"))
	req.Equal(0, registry.Connections())
}

func TestRegistry_RemoveConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Join("conn-1", "r1")
	registry.Join("conn-1", "r2")
	registry.Join("conn-2", "r1")

	affected := registry.RemoveConnection("conn-1")
	req.Equal([]string{"r1", "r2"}, affected)
	req.Equal([]string{"conn-2"}, registry.MembersOf("r1"))
	req.Empty(registry.MembersOf("r2"))

	// A second removal finds nothing to do
	req.Nil(registry.RemoveConnection("conn-1"))
}

func TestRegistry_MembersOfUnknownRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.Empty(registry.MembersOf("nowhere"))
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%03d", n)
			registry.Join(connID, "busy")
			registry.Join(connID, fmt.Sprintf("side-%d", n%10))
			if n%2 == 0 {
				registry.RemoveConnection(connID)
			}
		}(i)
	}
	wg.Wait()

	req.Len(registry.MembersOf("busy"), 50)
	req.Equal(50, registry.Connections())
}

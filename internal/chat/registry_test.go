// ABOUTME: Tests for the room registry membership operations
// ABOUTME: Covers join/leave/members snapshots, idempotent leave, room reclaim, concurrency

package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMember is a minimal Member for registry and broadcaster tests.
type fakeMember struct {
	id       string
	payloads chan []byte
}

func newFakeMember(id string) *fakeMember {
	return &fakeMember{id: id, payloads: make(chan []byte, 8)}
}

func (m *fakeMember) UserID() string { return m.id }

func (m *fakeMember) Deliver(p []byte) bool {
	select {
	case m.payloads <- p:
		return true
	default:
		return false
	}
}

func (m *fakeMember) received() int { return len(m.payloads) }

func TestRegistry_JoinAndMembers(t *testing.T) {
	r := NewRegistry(nil)
	key := RoomKey{CustomerID: "10", CaregiverID: "20"}

	a := newFakeMember("10")
	b := newFakeMember("20")
	r.Join(key, a)
	r.Join(key, b)

	members := r.Members(key)
	assert.Len(t, members, 2)
	assert.Equal(t, 1, r.RoomCount())
}

func TestRegistry_MembersOfUnknownRoomIsEmpty(t *testing.T) {
	r := NewRegistry(nil)

	members := r.Members(RoomKey{CustomerID: "1", CaregiverID: "2"})
	assert.Empty(t, members)
}

func TestRegistry_LeaveReclaimsEmptyRoom(t *testing.T) {
	r := NewRegistry(nil)
	key := RoomKey{CustomerID: "10", CaregiverID: "20"}

	a := newFakeMember("10")
	r.Join(key, a)
	require.Equal(t, 1, r.RoomCount())

	r.Leave(key, a)
	assert.Equal(t, 0, r.RoomCount())
	assert.Empty(t, r.Members(key))
}

func TestRegistry_DoubleLeaveIsHarmless(t *testing.T) {
	r := NewRegistry(nil)
	key := RoomKey{CustomerID: "10", CaregiverID: "20"}

	a := newFakeMember("10")
	b := newFakeMember("20")
	r.Join(key, a)
	r.Join(key, b)

	r.Leave(key, a)
	r.Leave(key, a) // second leave must not panic or disturb b

	members := r.Members(key)
	require.Len(t, members, 1)
	assert.Equal(t, "20", members[0].UserID())
}

func TestRegistry_OrderedKeyIsNotSymmetric(t *testing.T) {
	r := NewRegistry(nil)

	a := newFakeMember("10")
	r.Join(RoomKey{CustomerID: "10", CaregiverID: "20"}, a)

	// The reversed pair is a different room by construction.
	assert.Empty(t, r.Members(RoomKey{CustomerID: "20", CaregiverID: "10"}))
}

func TestRegistry_JoinRacingFinalLeaveStaysReachable(t *testing.T) {
	r := NewRegistry(nil)
	key := RoomKey{CustomerID: "10", CaregiverID: "20"}

	// A join racing the last member's leave must never land in a room struct
	// that the leave has already reclaimed from the map.
	for i := 0; i < 2000; i++ {
		a := newFakeMember("10")
		b := newFakeMember("20")
		r.Join(key, a)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Leave(key, a)
		}()
		go func() {
			defer wg.Done()
			r.Join(key, b)
		}()
		wg.Wait()

		members := r.Members(key)
		require.Len(t, members, 1, "iteration %d", i)
		require.Equal(t, "20", members[0].UserID())
		r.Leave(key, b)
	}
}

func TestRegistry_ConcurrentJoinsAndLeaves(t *testing.T) {
	r := NewRegistry(nil)
	key := RoomKey{CustomerID: "10", CaregiverID: "20"}

	var wg sync.WaitGroup
	members := make([]*fakeMember, 50)
	for i := range members {
		members[i] = newFakeMember(fmt.Sprintf("u%d", i))
	}

	for _, m := range members {
		wg.Add(1)
		go func(m *fakeMember) {
			defer wg.Done()
			r.Join(key, m)
		}(m)
	}
	wg.Wait()
	require.Len(t, r.Members(key), len(members))

	for _, m := range members {
		wg.Add(1)
		go func(m *fakeMember) {
			defer wg.Done()
			r.Leave(key, m)
		}(m)
	}
	wg.Wait()
	assert.Equal(t, 0, r.RoomCount())
}

package hub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinLeaveIdempotent(t *testing.T) {
	req := require.New(t)
	h := New()
	s := NewSession("")
	h.Register(s)

	h.Join("u1", s)
	h.Join("u1", s)
	h.Join("u1", s)
	req.Len(h.Members("u1"), 1)

	h.Leave("u1", s)
	req.Empty(h.Members("u1"))

	// leaving again is a no-op
	h.Leave("u1", s)
	req.Empty(h.Members("u1"))
}

func TestMembersUnknownRoom(t *testing.T) {
	h := New()
	require.Empty(t, h.Members("nobody-here"))
}

func TestEmptyRoomsAreDropped(t *testing.T) {
	req := require.New(t)
	h := New()
	s := NewSession("")
	h.Register(s)
	h.Join("u1", s)
	h.Leave("u1", s)
	req.NotContains(h.OnlineUserIDs(), "u1")
	req.Empty(h.rooms)
}

func TestUnregisterCleansAllRooms(t *testing.T) {
	req := require.New(t)
	h := New()
	s := NewSession("")
	h.Register(s)
	h.BindUser(s, "u1")
	h.Join("u1", s)
	h.Join(GroupRoom("g1"), s)
	h.Join(GroupRoom("g2"), s)

	req.True(h.Unregister(s))
	req.Empty(h.Rooms(s))
	req.Empty(h.Members("u1"))
	req.Empty(h.Members(GroupRoom("g1")))
	req.Zero(h.NumSessions())

	// second teardown reports already-gone
	req.False(h.Unregister(s))
}

func TestBindUserEmptyIsNoop(t *testing.T) {
	req := require.New(t)
	h := New()
	s := NewSession("")
	h.Register(s)
	h.BindUser(s, "u1")
	h.BindUser(s, "")
	req.Equal("u1", s.UserID())

	h.BindUser(s, "u2")
	req.Equal("u2", s.UserID())
}

func TestOnlineUserIDs(t *testing.T) {
	req := require.New(t)
	h := New()
	a := NewSession("")
	b := NewSession("")
	c := NewSession("")
	for _, s := range []*Session{a, b, c} {
		h.Register(s)
	}

	// two devices of the same user count once
	h.Join("u1", a)
	h.Join("u1", b)
	h.Join("u2", c)
	// group rooms never show up as users
	h.Join(GroupRoom("g1"), c)

	req.Equal([]string{"u1", "u2"}, h.OnlineUserIDs())

	h.Leave("u1", a)
	req.Equal([]string{"u1", "u2"}, h.OnlineUserIDs())
	h.Leave("u1", b)
	req.Equal([]string{"u2"}, h.OnlineUserIDs())
}

func TestGroupRoomDoesNotCollideWithUserRoom(t *testing.T) {
	req := require.New(t)
	h := New()
	user := NewSession("")
	member := NewSession("")
	h.Register(user)
	h.Register(member)

	// a user whose id equals a group id lives in a different room
	h.Join("g1", user)
	h.Join(GroupRoom("g1"), member)

	req.Len(h.Members("g1"), 1)
	req.Len(h.Members(GroupRoom("g1")), 1)
	req.NotEqual(h.Members("g1")[0], h.Members(GroupRoom("g1"))[0])
}

func TestBroadcastTargetsRoomOnly(t *testing.T) {
	req := require.New(t)
	h := New()
	in := NewSession("")
	out := NewSession("")
	h.Register(in)
	h.Register(out)
	h.Join("u1", in)

	h.Broadcast("u1", []byte("hello"))
	req.Len(in.Send, 1)
	req.Empty(out.Send)

	h.BroadcastAll([]byte("presence"))
	req.Len(in.Send, 2)
	req.Len(out.Send, 1)
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	s := NewSession("")
	for i := 0; i < sendBuffer+10; i++ {
		s.Deliver([]byte("x")) // must not block
	}
	require.Len(t, s.Send, sendBuffer)
}

func TestDeliverAfterCloseIsNoop(t *testing.T) {
	s := NewSession("")
	s.Close()
	s.Close() // idempotent
	s.Deliver([]byte("x"))
	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

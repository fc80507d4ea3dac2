package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otodzorelashvili/Sea-Backend/internal/models"
)

func TestMemoryStoreInsertAssignsIDAndTimestamps(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()

	m, err := s.InsertMessage(context.Background(), &models.Message{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
	})
	req.NoError(err)
	req.NotEmpty(m.ID)
	req.Equal(models.StatusSent, m.Status)
	req.False(m.CreatedAt.IsZero())

	m2, err := s.InsertMessage(context.Background(), &models.Message{
		SenderID: "u1", ReceiverID: "u2", Content: "again",
	})
	req.NoError(err)
	req.NotEqual(m.ID, m2.ID)
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	m, _ := s.InsertMessage(context.Background(), &models.Message{SenderID: "u1", ReceiverID: "u2", Content: "x"})

	req.NoError(s.UpdateStatus(context.Background(), []string{m.ID, "missing"}, models.StatusSeen))
	got, ok := s.Get(m.ID)
	req.True(ok)
	req.Equal(models.StatusSeen, got.Status)
}

func TestMemoryStoreSendersOf(t *testing.T) {
	req := require.New(t)
	s := NewMemoryStore()
	a, _ := s.InsertMessage(context.Background(), &models.Message{SenderID: "u1", ReceiverID: "u3", Content: "a"})
	b, _ := s.InsertMessage(context.Background(), &models.Message{SenderID: "u2", ReceiverID: "u3", Content: "b"})
	c, _ := s.InsertMessage(context.Background(), &models.Message{SenderID: "u2", ReceiverID: "u3", Content: "c"})

	senders, err := s.SendersOf(context.Background(), []string{a.ID, b.ID, c.ID, "missing"})
	req.NoError(err)
	req.Len(senders, 2)
	req.Equal([]string{a.ID}, senders["u1"])
	req.ElementsMatch([]string{b.ID, c.ID}, senders["u2"])
}

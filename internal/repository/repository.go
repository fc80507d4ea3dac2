package repository

import (
	"context"
	"errors"

	"github.com/otodzorelashvili/Sea-Backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// MessageStore is the persistence collaborator of the event router. The store
// assigns the id and created_at of inserted messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error)
	UpdateStatus(ctx context.Context, ids []string, status string) error
	// SendersOf groups the given message ids by their sender id. Unknown ids
	// are skipped, not errors.
	SendersOf(ctx context.Context, ids []string) (map[string][]string, error)
}

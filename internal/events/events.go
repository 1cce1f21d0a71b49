package events

import (
	"context"

	"github.com/yourorg/discovery-api/internal/catalog"
)

type ItemVisited struct {
	UserID string
	Kind   catalog.Kind
	ItemID string
}

type Publisher interface {
	PublishItemVisited(ctx context.Context, evt ItemVisited)
	SubscribeItemVisited() <-chan ItemVisited
}

type inMemory struct{ ch chan ItemVisited }

func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan ItemVisited, buffer)}
}

func (m *inMemory) PublishItemVisited(_ context.Context, evt ItemVisited) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeItemVisited() <-chan ItemVisited { return m.ch }

package visits

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/discovery-api/internal/catalog"
	"github.com/yourorg/discovery-api/internal/events"
)

// Writer is the store-side visit mutation.
type Writer interface {
	RecordVisit(ctx context.Context, userID string, kind catalog.Kind, itemID string) error
}

type Job struct {
	UserID string
	Kind   catalog.Kind
	ItemID string
}

func (j Job) key() string { return j.UserID + "/" + string(j.Kind) + "/" + j.ItemID }

// Recorder records visits off the request path. Duplicate jobs already in
// flight are dropped, as is anything past the queue capacity. A lost view
// event only costs recommendation freshness.
type Recorder struct {
	ch    chan Job
	inFly sync.Map // job key -> struct{}
	w     Writer
	pub   events.Publisher
	log   zerolog.Logger
}

func NewRecorder(capacity, workers int, w Writer, pub events.Publisher, log zerolog.Logger) *Recorder {
	if capacity <= 0 {
		capacity = 256
	}
	if workers <= 0 {
		workers = 2
	}
	r := &Recorder{
		ch:  make(chan Job, capacity),
		w:   w,
		pub: pub,
		log: log.With().Str("component", "visits").Logger(),
	}
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

func (r *Recorder) Enqueue(j Job) {
	if _, exists := r.inFly.LoadOrStore(j.key(), struct{}{}); exists {
		return
	}
	select {
	case r.ch <- j:
	default:
		// drop if saturated
		r.inFly.Delete(j.key())
	}
}

func (r *Recorder) worker() {
	for j := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		func() {
			defer func() {
				r.inFly.Delete(j.key())
				cancel()
			}()
			if err := r.w.RecordVisit(ctx, j.UserID, j.Kind, j.ItemID); err != nil {
				r.log.Warn().Err(err).Str("user", j.UserID).Str("item", j.ItemID).Msg("record visit failed")
				return
			}
			if r.pub != nil {
				r.pub.PublishItemVisited(ctx, events.ItemVisited{UserID: j.UserID, Kind: j.Kind, ItemID: j.ItemID})
			}
		}()
	}
}

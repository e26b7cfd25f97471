package feed

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"
)

// EventKind tells what happened to a feed
type EventKind int

const (
	// EventAttempt is sent before each fetch attempt
	EventAttempt EventKind = iota
	// EventRetry is sent after a failed attempt that will be retried
	EventRetry
	// EventFetched is sent once the payload is retrieved and unwrapped
	EventFetched
	// EventPage is sent after each page of a paginated feed
	EventPage
	// EventParsed is sent once the document is parsed, Total is the number of records
	EventParsed
	// EventSkipped is sent for a definition or entry dropped for missing data
	EventSkipped
	// EventRecord is sent for each record after the filters ran
	EventRecord
	// EventDone is sent at the end of a successful run, Count is the number of kept records
	EventDone
	// EventFailed is sent when the feed aborts
	EventFailed
)

var eventNames = map[EventKind]string{
	EventAttempt: "attempt",
	EventRetry:   "retry",
	EventFetched: "fetched",
	EventPage:    "page",
	EventParsed:  "parsed",
	EventSkipped: "skipped",
	EventRecord:  "record",
	EventDone:    "done",
	EventFailed:  "failed",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// Event is a progress notification of a feed run. Only the fields relevant to
// the kind are set.
type Event struct {
	Feed    string
	Kind    EventKind
	Attempt int
	Offset  int
	Count   int
	Total   int
	ID      string
	Kept    bool
	Reason  string
	Err     error
}

// Observer receives the events of feed runs. Feeds of one bulletin run
// concurrently, so implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

type NopObserver struct{}

func (NopObserver) Observe(Event) {}

// Observers fans events out to several observers
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		obs.Observe(e)
	}
}

// LogObserver writes events to a zap logger. Per-record events are logged at debug level.
type LogObserver struct {
	Logger *zap.Logger
}

func (o LogObserver) Observe(e Event) {
	log := o.Logger.With(zap.String("feed", e.Feed))
	switch e.Kind {
	case EventAttempt:
		log.Debug("Fetching", zap.Int("attempt", e.Attempt))
	case EventRetry:
		log.Warn("Fetch failed, retrying", zap.Int("attempt", e.Attempt), zap.Error(e.Err))
	case EventFetched:
		log.Info("Fetched", zap.Int("attempts", e.Attempt), zap.Int("bytes", e.Count))
	case EventPage:
		log.Info("Page received", zap.Int("offset", e.Offset), zap.Int("entries", e.Count))
	case EventParsed:
		log.Info("Parsed", zap.Int("records", e.Total))
	case EventSkipped:
		log.Debug("Skipped", zap.String("reason", e.Reason))
	case EventRecord:
		log.Debug("Filtered", zap.String("id", e.ID), zap.Bool("kept", e.Kept))
	case EventDone:
		log.Info("Done", zap.Int("kept", e.Count), zap.Int("records", e.Total))
	case EventFailed:
		log.Error("Feed failed", zap.Error(e.Err))
	}
}

// ProgressObserver draws a progress bar per feed while its records are filtered.
type ProgressObserver struct {
	Writer io.Writer

	mu   sync.Mutex
	bars map[string]*pb.ProgressBar
}

func NewProgressObserver(w io.Writer) *ProgressObserver {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressObserver{
		Writer: w,
		bars:   map[string]*pb.ProgressBar{},
	}
}

func (o *ProgressObserver) Observe(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e.Kind {
	case EventParsed:
		bar := pb.New(e.Total).SetWriter(o.Writer).Set("prefix", e.Feed+" ")
		o.bars[e.Feed] = bar.Start()
	case EventRecord:
		if bar, ok := o.bars[e.Feed]; ok {
			bar.Increment()
		}
	case EventDone, EventFailed:
		if bar, ok := o.bars[e.Feed]; ok {
			bar.Finish()
			delete(o.bars, e.Feed)
		}
	}
}

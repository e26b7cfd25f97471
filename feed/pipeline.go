package feed

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/msrc"
	"github.com/aquasecurity/vuln-bulletin/oval"
	"github.com/aquasecurity/vuln-bulletin/types"
	"github.com/aquasecurity/vuln-bulletin/utils"
)

type option func(*Pipeline)

func WithObserver(obs Observer) option {
	return func(p *Pipeline) { p.observer = obs }
}

// WithClock sets the clock open date windows are closed with
func WithClock(now func() time.Time) option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs the fetch, parse and filter stages of a feed. It holds no
// per-run state and can run several feeds at once.
type Pipeline struct {
	observer Observer
	now      func() time.Time
}

func NewPipeline(options ...option) *Pipeline {
	p := &Pipeline{
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run returns the records of the feed that pass its filters.
func (p *Pipeline) Run(ctx context.Context, d Descriptor) ([]types.Advisory, error) {
	records, err := p.run(ctx, d)
	if err != nil {
		p.observer.Observe(Event{Feed: d.Name, Kind: EventFailed, Err: err})
		return nil, xerrors.Errorf("feed %s: %w", d.Name, err)
	}
	return records, nil
}

func (p *Pipeline) run(ctx context.Context, d Descriptor) ([]types.Advisory, error) {
	if err := d.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid feed: %w", err)
	}
	match, err := d.Filter.Build()
	if err != nil {
		return nil, xerrors.Errorf("invalid filter: %w", err)
	}

	var records []types.Advisory
	switch d.Parser {
	case ParserOVAL:
		records, err = p.parseOVAL(ctx, d)
	case ParserMSRC:
		records, err = p.parseMSRC(ctx, d)
	}
	if err != nil {
		return nil, err
	}
	p.observer.Observe(Event{Feed: d.Name, Kind: EventParsed, Total: len(records)})

	var kept []types.Advisory
	for _, rec := range records {
		ok := match(rec)
		if ok {
			kept = append(kept, rec)
		}
		p.observer.Observe(Event{Feed: d.Name, Kind: EventRecord, ID: rec.ID, Kept: ok})
	}
	p.observer.Observe(Event{Feed: d.Name, Kind: EventDone, Count: len(kept), Total: len(records)})
	return kept, nil
}

// fetch retrieves and unwraps a payload of the feed.
func (p *Pipeline) fetch(ctx context.Context, d Descriptor, url string) ([]byte, error) {
	var attempts int
	opts := d.FetchOptions()
	opts.Notify = func(attempt int, state utils.RetryState, err error) {
		attempts = attempt
		switch {
		case state == utils.Attempting && err == nil:
			p.observer.Observe(Event{Feed: d.Name, Kind: EventAttempt, Attempt: attempt})
		case state == utils.Attempting:
			p.observer.Observe(Event{Feed: d.Name, Kind: EventRetry, Attempt: attempt, Err: err})
		}
	}

	b, err := utils.FetchURL(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	doc, err := utils.Unwrap(b, d.Encoding)
	if err != nil {
		return nil, err
	}
	p.observer.Observe(Event{Feed: d.Name, Kind: EventFetched, Attempt: attempts, Count: len(doc)})
	return doc, nil
}

func (p *Pipeline) parseOVAL(ctx context.Context, d Descriptor) ([]types.Advisory, error) {
	doc, err := p.fetch(ctx, d, d.URL)
	if err != nil {
		return nil, err
	}
	defs, err := oval.Decode(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var records []types.Advisory
	for _, def := range defs {
		if def.Metadata == nil {
			p.observer.Observe(Event{Feed: d.Name, Kind: EventSkipped, ID: def.ID, Reason: "no metadata"})
			continue
		}
		records = append(records, oval.Records(def, d.Sources...)...)
	}
	return records, nil
}

func (p *Pipeline) parseMSRC(ctx context.Context, d Descriptor) ([]types.Advisory, error) {
	q, err := d.MSRC.Query(p.now())
	if err != nil {
		return nil, xerrors.Errorf("invalid query: %w", err)
	}
	idField, dateField := d.MSRC.Fields()

	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return p.fetch(ctx, d, url)
	}
	var entries int
	records, err := msrc.Walk(ctx, d.URL, q, idField, dateField, fetch, func(skip, n int) {
		entries += n
		p.observer.Observe(Event{Feed: d.Name, Kind: EventPage, Offset: skip, Count: n})
	})
	if err != nil {
		return nil, err
	}
	if skipped := entries - len(records); skipped > 0 {
		p.observer.Observe(Event{Feed: d.Name, Kind: EventSkipped, Count: skipped, Reason: "no " + idField})
	}
	return records, nil
}

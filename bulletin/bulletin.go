package bulletin

import (
	"context"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/feed"
	"github.com/aquasecurity/vuln-bulletin/utils"
)

// Mode is how the sets of several feeds are combined
type Mode string

const (
	// Intersect keeps the identifiers every feed agrees on
	Intersect Mode = "intersect"
	Union     Mode = "union"
)

// Bulletin is one output file built from one or more feeds.
type Bulletin struct {
	Name      string            `yaml:"name"`
	Output    string            `yaml:"output"`
	Reconcile Mode              `yaml:"reconcile,omitempty"`
	Feeds     []feed.Descriptor `yaml:"feeds"`
}

func (b Bulletin) Validate() error {
	if b.Name == "" {
		return xerrors.New("bulletin name is required")
	}
	if b.Output == "" {
		return xerrors.Errorf("%s: output is required", b.Name)
	}
	switch b.Reconcile {
	case "", Intersect, Union:
	default:
		return xerrors.Errorf("%s: unknown reconcile mode: %s", b.Name, b.Reconcile)
	}
	if len(b.Feeds) == 0 {
		return xerrors.Errorf("%s: at least one feed is required", b.Name)
	}

	names := map[string]struct{}{}
	for _, d := range b.Feeds {
		if err := d.Validate(); err != nil {
			return xerrors.Errorf("%s: %w", b.Name, err)
		}
		if _, ok := names[d.Name]; ok {
			return xerrors.Errorf("%s: duplicate feed: %s", b.Name, d.Name)
		}
		names[d.Name] = struct{}{}
	}
	return nil
}

// Runner builds bulletins. The feeds of a bulletin are run concurrently and
// combined once all of them have succeeded.
type Runner struct {
	pipeline *feed.Pipeline
}

func NewRunner(pipeline *feed.Pipeline) *Runner {
	return &Runner{pipeline: pipeline}
}

// Run returns the ordered identifiers of the bulletin. A failure of any feed
// fails the whole bulletin.
func (r *Runner) Run(ctx context.Context, b Bulletin) ([]string, error) {
	if err := b.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid bulletin: %w", err)
	}

	sets := make([]*Set, len(b.Feeds))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range b.Feeds {
		i, d := i, d
		g.Go(func() error {
			records, err := r.pipeline.Run(ctx, d)
			if err != nil {
				return err
			}
			s := NewSet()
			for _, rec := range records {
				s.AddRecord(rec, d.SortDate)
			}
			sets[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, xerrors.Errorf("%s: %w", b.Name, err)
	}

	return Order(Reconcile(b.Reconcile, sets...)), nil
}

// Reconcile combines the sets, intersecting them unless mode is Union.
func Reconcile(mode Mode, sets ...*Set) *Set {
	if len(sets) == 0 {
		return NewSet()
	}
	res := sets[0]
	for _, s := range sets[1:] {
		if mode == Union {
			res = res.Union(s)
		} else {
			res = res.Intersect(s)
		}
	}
	return res
}

// Write saves the identifiers to path, one per line.
func Write(fs afero.Fs, path string, ids []string) error {
	if err := utils.NewFs(fs).WriteLines(path, ids); err != nil {
		return xerrors.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

package msrc

// PageState is where a Pager stands between two requests
type PageState int

const (
	HasMore PageState = iota
	Done
)

func (s PageState) String() string {
	if s == Done {
		return "done"
	}
	return "has more"
}

// Pager tracks the offset of an offset/limit paginated listing.
// A page that is empty or shorter than the page size is the last one.
type Pager struct {
	pageSize int
	offset   int
	state    PageState
}

func NewPager(pageSize int) *Pager {
	return &Pager{pageSize: pageSize}
}

func (p *Pager) HasMore() bool {
	return p.state == HasMore
}

func (p *Pager) State() PageState {
	return p.state
}

// Offset is the offset of the next page to request
func (p *Pager) Offset() int {
	return p.offset
}

// Advance records that the page at Offset returned n entries.
func (p *Pager) Advance(n int) {
	if p.state == Done {
		return
	}
	if n == 0 || n < p.pageSize {
		p.state = Done
		return
	}
	p.offset += p.pageSize
}

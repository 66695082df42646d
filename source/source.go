// Package source turns coordinate sorted alignment records into a stream of DirectedEvidence.
package source

import (
	"context"
	"errors"
	"fmt"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/vertgenlab/gonomics/sam"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"io"
	"log"
	"sort"
)

var ErrUnsorted = errors.New("input is not coordinate sorted: sort with samtools sort (and by mate coordinate for the mate input) before assembly")

// Config controls the evidence stream.
type Config struct {
	Capacity int // evidence buffered ahead of the consumer
	Category int
	Logger   *log.Logger // nil discards diagnostics
}

// DefaultConfig returns the default stream settings.
func DefaultConfig() Config {
	return Config{Capacity: 1000}
}

// Stats counts the records consumed by a Source.
type Stats struct {
	Records  int
	Mates    int
	Evidence int
	Unpaired int
}

// Source reads evidence in the background. Evidence is emitted in order of linear breakend start.
type Source struct {
	out    chan evidence.DirectedEvidence
	group  *errgroup.Group
	cancel context.CancelFunc
	stats  Stats
}

// position is the merge key of a record, the position of the read anchoring its evidence.
type position struct {
	refIdx int
	pos    int
}

func (p position) less(o position) bool {
	if p.refIdx != o.refIdx {
		return p.refIdx < o.refIdx
	}
	return p.pos < o.pos
}

type pending struct {
	key    position
	record *sam.Sam
}

type buffered struct {
	start int
	e     evidence.DirectedEvidence
}

type producer struct {
	factory  *evidence.Factory
	cfg      Config
	logger   *log.Logger
	out      chan<- evidence.DirectedEvidence
	stats    *Stats
	locals   map[string]pending // read pair candidates awaiting their mate
	mates    map[string]pending // mates awaiting their local read
	buffer   []buffered
	lastKeys [2]position
	started  [2]bool
	pruned   position
}

// Start begins reading evidence from records, ordered by position, and mates, ordered by
// mate position. Both channels are drained after cancellation so upstream readers can release
// their files.
func Start(ctx context.Context, records, mates <-chan sam.Sam, factory *evidence.Factory, cfg Config) *Source {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	s := &Source{out: make(chan evidence.DirectedEvidence, cfg.Capacity), group: g, cancel: cancel}
	p := &producer{
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		out:     s.out,
		stats:   &s.stats,
		locals:  make(map[string]pending),
		mates:   make(map[string]pending),
	}
	g.Go(func() error {
		defer close(s.out)
		defer drain(records)
		defer drain(mates)
		return p.run(ctx, records, mates)
	})
	return s
}

func drain(c <-chan sam.Sam) {
	if c == nil {
		return
	}
	go func() {
		for range c {
		}
	}()
}

// Evidence returns the evidence stream. It is closed when the input is exhausted or reading stops.
func (s *Source) Evidence() <-chan evidence.DirectedEvidence {
	return s.out
}

// Wait blocks until the producer has finished and returns the first error it encountered.
// Stats may be read once Wait returns.
func (s *Source) Wait() error {
	err := s.group.Wait()
	s.cancel()
	return err
}

// Close stops reading early and releases the inputs.
func (s *Source) Close() error {
	s.cancel()
	for range s.out {
	}
	err := s.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns the record counts. Only valid after Wait or Close.
func (s *Source) Stats() Stats {
	return s.stats
}

func (p *producer) recordKey(r *sam.Sam) (position, bool) {
	refIdx, found := p.factory.Coordinate().Index(r.RName)
	return position{refIdx: refIdx, pos: int(r.Pos)}, found && r.Pos > 0
}

func (p *producer) mateKey(r *sam.Sam) (position, bool) {
	name := r.RNext
	if name == "=" {
		name = r.RName
	}
	refIdx, found := p.factory.Coordinate().Index(name)
	return position{refIdx: refIdx, pos: int(r.PNext)}, found && r.PNext > 0
}

func (p *producer) checkOrder(stream int, key position, r *sam.Sam) error {
	if p.started[stream] && key.less(p.lastKeys[stream]) {
		return fmt.Errorf("%s at %s:%d: %w", r.QName, p.factory.Coordinate().Name(key.refIdx), key.pos, ErrUnsorted)
	}
	p.started[stream], p.lastKeys[stream] = true, key
	return nil
}

func pairName(r *sam.Sam, local bool) string {
	seg := r.Flag & 0xC0
	if !local {
		seg ^= 0xC0
	}
	return fmt.Sprintf("%s/%d", r.QName, seg)
}

func receive(ctx context.Context, c <-chan sam.Sam) (sam.Sam, bool, error) {
	if c == nil {
		return sam.Sam{}, false, nil
	}
	select {
	case r, ok := <-c:
		return r, ok, nil
	case <-ctx.Done():
		return sam.Sam{}, false, ctx.Err()
	}
}

func (p *producer) run(ctx context.Context, records, mates <-chan sam.Sam) error {
	var err error
	var r, m sam.Sam
	var rOk, mOk bool
	var rKey, mKey position
	if r, rOk, err = p.nextRecord(ctx, records, &rKey); err != nil {
		return err
	}
	if m, mOk, err = p.nextMate(ctx, mates, &mKey); err != nil {
		return err
	}
	for rOk || mOk {
		if rOk && (!mOk || !mKey.less(rKey)) {
			if err = p.addRecord(ctx, r, rKey); err != nil {
				return err
			}
			if r, rOk, err = p.nextRecord(ctx, records, &rKey); err != nil {
				return err
			}
		} else {
			if err = p.addMate(ctx, m, mKey); err != nil {
				return err
			}
			if m, mOk, err = p.nextMate(ctx, mates, &mKey); err != nil {
				return err
			}
		}
	}
	p.stats.Unpaired += len(p.locals) + len(p.mates)
	return p.release(ctx, nil)
}

// nextRecord returns the next placed record. Unplaced records at the end of the input are skipped.
func (p *producer) nextRecord(ctx context.Context, c <-chan sam.Sam, key *position) (sam.Sam, bool, error) {
	for {
		r, ok, err := receive(ctx, c)
		if err != nil || !ok {
			return r, ok, err
		}
		p.stats.Records++
		var placed bool
		if *key, placed = p.recordKey(&r); !placed {
			continue
		}
		return r, true, p.checkOrder(0, *key, &r)
	}
}

func (p *producer) nextMate(ctx context.Context, c <-chan sam.Sam, key *position) (sam.Sam, bool, error) {
	for {
		r, ok, err := receive(ctx, c)
		if err != nil || !ok {
			return r, ok, err
		}
		p.stats.Mates++
		var placed bool
		if *key, placed = p.mateKey(&r); !placed {
			continue
		}
		return r, true, p.checkOrder(1, *key, &r)
	}
}

// prune drops pair halves whose partner can no longer arrive.
func (p *producer) prune(key position) {
	if !p.pruned.less(key) {
		return
	}
	p.pruned = key
	for name, h := range p.locals {
		if h.key.less(key) {
			delete(p.locals, name)
			p.stats.Unpaired++
		}
	}
	for name, h := range p.mates {
		if h.key.less(key) {
			delete(p.mates, name)
			p.stats.Unpaired++
		}
	}
}

// addRecord takes r by value since evidence keeps a reference to its record.
func (p *producer) addRecord(ctx context.Context, rec sam.Sam, key position) error {
	r := &rec
	p.prune(key)
	ev, err := p.factory.FromRead(r, p.cfg.Category)
	if err != nil {
		return err
	}
	if p.factory.IsReadPairCandidate(r) {
		name := pairName(r, true)
		if m, found := p.mates[name]; found {
			delete(p.mates, name)
			if e := p.factory.FromReadPair(r, m.record, p.cfg.Category); e != nil {
				ev = append(ev, e)
			}
		} else {
			p.locals[name] = pending{key: key, record: r}
		}
	}
	p.buffer = p.insert(p.buffer, ev)
	return p.release(ctx, &key)
}

func (p *producer) addMate(ctx context.Context, rec sam.Sam, key position) error {
	m := &rec
	p.prune(key)
	if !sam.IsPaired(*m) || sam.IsNotPrimaryAlign(*m) || sam.IsSupplementaryAlign(*m) || (sam.ProperlyAligned(*m) && !sam.IsUnmapped(*m)) {
		return nil
	}
	name := pairName(m, false)
	if l, found := p.locals[name]; found {
		delete(p.locals, name)
		if e := p.factory.FromReadPair(l.record, m, p.cfg.Category); e != nil {
			p.buffer = p.insert(p.buffer, []evidence.DirectedEvidence{e})
			return p.release(ctx, &key)
		}
		return nil
	}
	p.mates[name] = pending{key: key, record: m}
	return nil
}

func (p *producer) linearStart(e evidence.DirectedEvidence) int {
	b := e.Breakend()
	return p.factory.Coordinate().ToLinear(b.RefIdx, b.Start)
}

func (p *producer) insert(buf []buffered, ev []evidence.DirectedEvidence) []buffered {
	for _, e := range ev {
		b := buffered{start: p.linearStart(e), e: e}
		i := sort.Search(len(buf), func(j int) bool {
			if buf[j].start != b.start {
				return buf[j].start > b.start
			}
			return buf[j].e.EvidenceID() > b.e.EvidenceID()
		})
		buf = slices.Insert(buf, i, b)
	}
	return buf
}

// release emits buffered evidence that no later record can precede. A nil key flushes everything.
func (p *producer) release(ctx context.Context, key *position) error {
	limit := len(p.buffer)
	if key != nil {
		// breakends lie at most one fragment before the read that produced them
		threshold := p.factory.Coordinate().ToLinear(key.refIdx, key.pos) - p.factory.MaxFragmentSize()
		limit = sort.Search(len(p.buffer), func(i int) bool { return p.buffer[i].start >= threshold })
	}
	for i := 0; i < limit; i++ {
		select {
		case p.out <- p.buffer[i].e:
			p.stats.Evidence++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.buffer = slices.Delete(p.buffer, 0, limit)
	return nil
}

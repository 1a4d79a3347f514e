package source

import (
	"context"
	"io"
	"sync"
)

type item struct {
	row Row
	err error
}

// Prefetcher reads from an underlying Source on a background goroutine so
// that a blocked read can be abandoned when the context is cancelled. Rows
// are delivered in input order; only the consumer touches their contents.
type Prefetcher struct {
	src Source

	once    sync.Once
	header  chan item
	metrics []string
	rows    chan item
	done    chan struct{}
	closed  sync.Once
}

// Prefetch wraps src with a read-ahead buffer of depth rows.
func Prefetch(src Source, depth int) *Prefetcher {
	if depth < 1 {
		depth = 1
	}
	return &Prefetcher{
		src:    src,
		header: make(chan item, 1),
		rows:   make(chan item, depth),
		done:   make(chan struct{}),
	}
}

func (p *Prefetcher) start() {
	p.once.Do(func() {
		go p.run()
	})
}

func (p *Prefetcher) run() {
	defer close(p.rows)
	// The reader goroutine outlives cancellation of the consumer's context;
	// only Close stops it.
	ctx := context.Background()
	names, err := p.src.Header(ctx)
	p.header <- item{row: Row{Fields: names}, err: err}
	if err != nil {
		return
	}
	for {
		row, err := p.src.Next(ctx)
		select {
		case p.rows <- item{row: row, err: err}:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Header waits for the header of the underlying source.
func (p *Prefetcher) Header(ctx context.Context) ([]string, error) {
	p.start()
	if p.metrics != nil {
		return append([]string(nil), p.metrics...), nil
	}
	select {
	case it := <-p.header:
		if it.err != nil {
			// Keep the error observable for repeated calls.
			p.header <- it
			return nil, it.err
		}
		p.metrics = it.row.Fields
		return append([]string(nil), p.metrics...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Next waits for the next row or the cancellation of ctx.
func (p *Prefetcher) Next(ctx context.Context) (Row, error) {
	p.start()
	select {
	case it, ok := <-p.rows:
		if !ok {
			return Row{}, io.EOF
		}
		return it.row, it.err
	case <-ctx.Done():
		return Row{}, ctx.Err()
	}
}

// Close stops the background reader once its current read returns.
func (p *Prefetcher) Close() error {
	p.closed.Do(func() { close(p.done) })
	return nil
}

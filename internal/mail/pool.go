package mail

import "fmt"

// Pool is a fixed-size pool of Remote handles. The underlying client
// libraries are not safe to share a single handle across concurrent calls,
// so each fetch worker checks a handle out and returns it when done.
type Pool struct {
	handles chan Remote
	size    int
}

// NewPool builds size handles with factory and returns the filled pool.
func NewPool(size int, factory func() (Remote, error)) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		handles: make(chan Remote, size),
		size:    size,
	}
	for i := 0; i < size; i++ {
		r, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create remote handle: %w", err)
		}
		p.handles <- r
	}
	return p, nil
}

// Get blocks until a handle is available and checks it out.
func (p *Pool) Get() Remote {
	return <-p.handles
}

// Put returns a handle to the pool.
func (p *Pool) Put(r Remote) {
	p.handles <- r
}

// Size returns the number of handles the pool was built with.
func (p *Pool) Size() int {
	return p.size
}

// Close closes every handle currently in the pool.
func (p *Pool) Close() error {
	var firstErr error
	for {
		select {
		case r := <-p.handles:
			if err := r.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}

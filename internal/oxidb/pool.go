package oxidb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pool is a round-robin set of connections with keepalive and reconnect.
type Pool struct {
	host    string
	port    int
	clients []*Client
	mu      []sync.RWMutex
	idx     uint64
	stop    chan struct{}
	done    sync.WaitGroup
	log     zerolog.Logger
}

// NewPool opens size connections and starts a keepalive loop.
func NewPool(host string, port, size int, log zerolog.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		host:    host,
		port:    port,
		clients: make([]*Client, size),
		mu:      make([]sync.RWMutex, size),
		stop:    make(chan struct{}),
		log:     log.With().Str("component", "oxidb").Logger(),
	}
	for i := 0; i < size; i++ {
		c, err := Connect(host, port, 5*time.Second)
		if err != nil {
			p.closeClients()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	p.done.Add(1)
	go p.keepalive(10 * time.Second)
	return p, nil
}

// Do runs fn with the next client in round-robin order. A slot whose client
// broke on an earlier call is reconnected before use.
func (p *Pool) Do(fn func(c *Client) error) error {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))

	p.mu[i].RLock()
	c := p.clients[i]
	if c.Broken() {
		p.mu[i].RUnlock()
		p.reconnectIf(i, (*Client).Broken)
		p.mu[i].RLock()
		c = p.clients[i]
	}
	defer p.mu[i].RUnlock()
	if c.Broken() {
		return fmt.Errorf("pool: client %d: %w", i, ErrBroken)
	}
	return fn(c)
}

func (p *Pool) reconnect(i int) {
	p.reconnectIf(i, func(*Client) bool { return true })
}

// reconnectIf replaces slot i under the write lock when need still holds for
// its current client.
func (p *Pool) reconnectIf(i int, need func(*Client) bool) {
	p.mu[i].Lock()
	defer p.mu[i].Unlock()
	if !need(p.clients[i]) {
		return
	}
	p.clients[i].Close()
	c, err := Connect(p.host, p.port, 5*time.Second)
	if err != nil {
		p.log.Warn().Err(err).Int("client", i).Msg("reconnect failed")
		return
	}
	p.clients[i] = c
}

func (p *Pool) keepalive(every time.Duration) {
	defer p.done.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				p.mu[i].RLock()
				_, err := p.clients[i].Ping(ctx)
				p.mu[i].RUnlock()
				cancel()
				if err != nil {
					p.log.Warn().Err(err).Int("client", i).Msg("ping failed, reconnecting")
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes every connection.
func (p *Pool) Close() {
	close(p.stop)
	p.done.Wait()
	p.closeClients()
}

func (p *Pool) closeClients() {
	for _, c := range p.clients {
		if c != nil {
			c.Close()
		}
	}
}

package kvstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Aidin1998/todokv/pkg/metrics"
	"go.uber.org/zap"
)

// Provider hands out namespaced stores by logical name. Only names bound at
// construction resolve; everything else is ErrUnknownNamespace.
type Provider struct {
	backend Backend
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	stores map[string]Store
}

// NewProvider binds namespaces on backend. m may be nil to skip
// instrumentation.
func NewProvider(backend Backend, namespaces []string, m *metrics.Metrics, logger *zap.Logger) *Provider {
	p := &Provider{
		backend: backend,
		metrics: m,
		logger:  logger,
		stores:  make(map[string]Store, len(namespaces)),
	}
	for _, ns := range namespaces {
		var s Store = backend.Store(ns)
		if m != nil {
			s = &instrumentedStore{Store: s, driver: backend.Driver(), metrics: m}
		}
		p.stores[ns] = s
	}
	return p
}

// Namespace returns the store bound to name.
func (p *Provider) Namespace(ctx context.Context, name string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	s, ok := p.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	return s, nil
}

// Ping checks the backend unless the provider has been closed.
func (p *Provider) Ping(ctx context.Context) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return p.backend.Ping(ctx)
}

// Close closes the backend. Later Namespace calls fail with ErrClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.logger.Info("Closing key-value store", zap.String("driver", p.backend.Driver()))
	return p.backend.Close()
}

// Driver names the underlying backend.
func (p *Provider) Driver() string {
	return p.backend.Driver()
}

type instrumentedStore struct {
	Store
	driver  string
	metrics *metrics.Metrics
}

func (s *instrumentedStore) observe(op string, start time.Time) {
	s.metrics.StoreOperationDuration.WithLabelValues(s.driver, op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) ListKeys(ctx context.Context) ([]string, error) {
	defer s.observe("list", time.Now())
	return s.Store.ListKeys(ctx)
}

func (s *instrumentedStore) Put(ctx context.Context, key, value string) error {
	defer s.observe("put", time.Now())
	return s.Store.Put(ctx, key, value)
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	defer s.observe("delete", time.Now())
	return s.Store.Delete(ctx, key)
}

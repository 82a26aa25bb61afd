package mosaic

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinator routes the queries of the rendering layer to the bound
// connector.
//
// Every call reads the bound connector once and uses it until the call
// returns, so rebinding with DatabaseConnector does not affect calls already
// in flight.
type Coordinator struct {
	mu        sync.RWMutex
	connector Connector

	cache  *expirable.LRU[string, *Result]
	logger *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger of the coordinator.
func WithCoordinatorLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithResultCache keeps up to size arrow and json results for ttl. Cached
// results are shared between callers; releasing one is a no-op.
func WithResultCache(size int, ttl time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if size > 0 {
			c.cache = expirable.NewLRU[string, *Result](size, nil, ttl)
		}
	}
}

// NewCoordinator creates a coordinator without a bound connector.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// DatabaseConnector binds conn and returns the previously bound connector.
// The result cache is cleared.
func (c *Coordinator) DatabaseConnector(conn Connector) Connector {
	c.mu.Lock()
	prev := c.connector
	c.connector = conn
	c.mu.Unlock()

	c.Clear()
	if conn != nil {
		c.logger.Info("database connector bound", zap.String("backend", conn.Kind()))
	}
	return prev
}

// Connector returns the bound connector, or nil.
func (c *Coordinator) Connector() Connector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connector
}

// Query runs stmt on the bound connector.
func (c *Coordinator) Query(ctx context.Context, stmt string, kind ResultKind) (*Result, error) {
	conn := c.Connector()
	if conn == nil {
		return nil, ErrNoConnector
	}
	q := Query{SQL: stmt, Kind: kind}
	if err := checkQuery(conn, q); err != nil {
		return nil, err
	}

	if kind == ResultKindExec {
		defer c.Clear()
		return conn.Query(ctx, q)
	}

	key := cacheKey(conn, q)
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			return res, nil
		}
	}

	res, err := conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		res.shared = true
		c.cache.Add(key, res)
	}
	return res, nil
}

// Exec runs statements in order on the bound connector, using its Execer fast
// path when it has one.
func (c *Coordinator) Exec(ctx context.Context, statements ...string) error {
	conn := c.Connector()
	if conn == nil {
		return ErrNoConnector
	}
	defer c.Clear()

	if execer, ok := conn.(Execer); ok {
		return execer.Exec(ctx, statements...)
	}
	for _, stmt := range statements {
		if _, err := conn.Query(ctx, Query{SQL: stmt, Kind: ResultKindExec}); err != nil {
			return err
		}
	}
	return nil
}

// QueryAll runs queries concurrently and returns their results in input
// order. The first failure cancels the remaining queries and releases the
// results already received.
func (c *Coordinator) QueryAll(ctx context.Context, queries ...Query) ([]*Result, error) {
	results := make([]*Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			res, err := c.Query(ctx, q.SQL, q.Kind)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, res := range results {
			res.Release()
		}
		return nil, err
	}
	return results, nil
}

// Clear drops every cached result.
func (c *Coordinator) Clear() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func cacheKey(conn Connector, q Query) string {
	return conn.Kind() + "|" + string(q.Kind) + "|" + q.SQL
}

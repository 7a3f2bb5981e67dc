package consistency

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Engine coordinates catalog transactions. It is safe for concurrent use;
// each Run call owns its own transaction handle.
type Engine struct {
	db       *gorm.DB
	graph    Graph
	log      zerolog.Logger
	metrics  *Metrics
	newStore func(*gorm.DB) Store
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger (default: disabled)
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithGraph replaces the default dependency graph
func WithGraph(g Graph) Option {
	return func(e *Engine) { e.graph = g }
}

// WithStoreFactory controls how a transaction handle becomes a Store
func WithStoreFactory(f func(*gorm.DB) Store) Option {
	return func(e *Engine) { e.newStore = f }
}

// NewEngine builds an engine over db
func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:    db,
		graph: DefaultGraph(),
		log:   zerolog.Nop(),
		newStore: func(tx *gorm.DB) Store {
			return NewGormStore(tx)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the dependency graph the engine deletes by
func (e *Engine) Graph() Graph {
	return e.graph
}

type txKey struct{}

// InTransaction reports whether ctx was handed out by Run
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// Tx is the unit of work passed to Run callbacks. All of its operations share
// one transaction handle.
type Tx struct {
	engine     *Engine
	db         *gorm.DB
	store      Store
	deleted    Counts
	reconciled []*ReconcileResult
}

// Store returns the transaction-scoped store
func (tx *Tx) Store() Store {
	return tx.store
}

// DB returns the transaction handle for queries the Store does not cover.
// Rows changed through it are committed or rolled back with the rest of the
// transaction.
func (tx *Tx) DB() *gorm.DB {
	return tx.db
}

// Run executes fn inside a single transaction. It commits when fn returns nil
// and rolls back otherwise; the returned error is always an *Error. Calling
// Run with a context obtained from another Run is rejected: nested work must
// go through the Tx it was given.
func (e *Engine) Run(ctx context.Context, op string, fn func(ctx context.Context, tx *Tx) error) (err error) {
	start := time.Now()
	if InTransaction(ctx) {
		err = &Error{Op: op, Kind: KindInternal, Err: ErrNestedTransaction}
		e.metrics.observe(op, start, err)
		return err
	}
	ctx = context.WithValue(ctx, txKey{}, op)

	var tx *Tx
	err = e.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		tx = &Tx{engine: e, db: db, store: e.newStore(db), deleted: Counts{}}
		return fn(ctx, tx)
	})
	if err != nil {
		err = Classify(op, err)
		e.logFailure(op, err, start)
		e.metrics.observe(op, start, err)
		return err
	}

	e.metrics.observe(op, start, nil)
	e.metrics.deleted(tx.deleted)
	for _, r := range tx.reconciled {
		e.metrics.reconciled(r)
	}
	e.log.Debug().
		Str("op", op).
		Dur("took", time.Since(start)).
		Str("deleted", tx.deleted.String()).
		Int("reconciled", len(tx.reconciled)).
		Msg("catalog transaction committed")
	return nil
}

func (e *Engine) logFailure(op string, err error, start time.Time) {
	kind := KindOf(err)
	var ev *zerolog.Event
	switch kind {
	case KindRejected:
		ev = e.log.Debug()
	case KindConstraintViolation, KindInternal:
		// These point at a dependency graph gap or a bug, not bad input
		ev = e.log.Error()
	default:
		ev = e.log.Warn()
	}
	ev.Err(err).
		Str("op", op).
		Str("kind", kind.String()).
		Dur("took", time.Since(start)).
		Msg("catalog transaction rolled back")
}

// DeleteSubtree permanently removes root and everything that depends on it,
// in one transaction
func (e *Engine) DeleteSubtree(ctx context.Context, root EntityType, id string) (Counts, error) {
	var counts Counts
	err := e.Run(ctx, "delete_subtree", func(ctx context.Context, tx *Tx) error {
		var err error
		counts, err = tx.DeleteSubtree(ctx, root, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Reconcile replaces the membership collection of a parent with desired, in
// one transaction
func (e *Engine) Reconcile(ctx context.Context, parent EntityType, parentID string, desired []string) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := e.Run(ctx, "reconcile", func(ctx context.Context, tx *Tx) error {
		var err error
		result, err = tx.Reconcile(ctx, parent, parentID, desired)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

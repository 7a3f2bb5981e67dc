package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sahilchouksey/catalog-api/services/consistency"
)

// Locker grants short-lived exclusive locks; cache.RedisCache implements it
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// NoopLocker always grants the lock. Used when Redis is not configured; the
// database isolation level is then the only protection.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "", true, nil
}

func (NoopLocker) Release(context.Context, string, string) error { return nil }

// LockKey is the lock guarding writes below one catalog entity
func LockKey(t consistency.EntityType, id string) string {
	return fmt.Sprintf("catalog:lock:%s:%s", t, consistency.NormalizeID(id))
}

type heldLock struct {
	key   string
	token string
}

// withLocks runs fn while holding the locks for keys. Keys are taken in
// sorted order so two callers locking the same set cannot deadlock. If the
// locker itself fails the write proceeds unlocked.
func (b *base) withLocks(ctx context.Context, keys []string, fn func() error) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var held []heldLock
	release := func() {
		// The request context may already be cancelled
		rctx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := b.locker.Release(rctx, held[i].key, held[i].token); err != nil {
				b.log.Warn().Err(err).Str("key", held[i].key).Msg("failed to release catalog lock")
			}
		}
	}
	defer release()

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		token, ok, err := b.locker.Acquire(ctx, key, b.lockTTL)
		if err != nil {
			b.log.Warn().Err(err).Str("key", key).Msg("lock backend unavailable, continuing without lock")
			continue
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrLocked, key)
		}
		held = append(held, heldLock{key: key, token: token})
	}

	return fn()
}

// currentParents returns the distinct values of column for the rows of t
// with the given ids. Missing rows contribute nothing.
func (b *base) currentParents(ctx context.Context, t consistency.EntityType, column string, ids []string) ([]string, error) {
	set := consistency.NewIDSet(ids...)
	if set.Len() == 0 {
		return nil, nil
	}
	table, err := consistency.Table(t)
	if err != nil {
		return nil, err
	}

	var parents []string
	err = b.db.WithContext(ctx).
		Table(table).
		Where("id IN ?", set.Slice()).
		Distinct(column).
		Pluck(column, &parents).Error
	if err != nil {
		return nil, consistency.Classify("lookup_parents", err)
	}
	return parents, nil
}

// membershipKeys returns the locks a reconcile of parent needs besides the
// parent itself: every listed child, plus the parents those children are
// taken from. The lookup runs before the locks are held, so a child moved in
// between is covered only by the transaction.
func (b *base) membershipKeys(ctx context.Context, parent consistency.EntityType, desired []string) ([]string, error) {
	edge, ok := b.engine.Graph().Membership(parent)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no membership", consistency.ErrUnknownEntity, parent)
	}
	donors, err := b.currentParents(ctx, edge.Child, edge.ForeignKey, desired)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(desired)+len(donors))
	for _, id := range consistency.NewIDSet(desired...).Slice() {
		keys = append(keys, LockKey(edge.Child, id))
	}
	for _, p := range donors {
		keys = append(keys, LockKey(parent, p))
	}
	return keys, nil
}

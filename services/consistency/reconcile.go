package consistency

import (
	"context"
	"fmt"
)

// ReconcileResult describes what a reconciliation changed
type ReconcileResult struct {
	Parent   EntityType `json:"parent"`
	ParentID string     `json:"parent_id"`
	Child    EntityType `json:"child"`
	// Linked were attached to the parent, possibly moved from another one
	Linked []string `json:"linked"`
	// Unlinked were dropped from the parent and cascade-deleted
	Unlinked []string `json:"unlinked"`
	// Kept were already linked and stay untouched
	Kept []string `json:"kept"`
	// Ignored were requested but do not exist in the store
	Ignored []string `json:"ignored"`
	// OrphansDeleted counts the rows removed with the unlinked children
	OrphansDeleted Counts `json:"orphans_deleted"`
}

// Changed reports whether anything was linked or removed
func (r *ReconcileResult) Changed() bool {
	return len(r.Linked) > 0 || len(r.Unlinked) > 0
}

// Reconcile makes the parent's membership collection equal to the existing
// ids in desired. Ids that do not resolve to a row are ignored. Children
// present now but absent from desired lose their required parent link and
// are therefore cascade-deleted in the same transaction.
func (tx *Tx) Reconcile(ctx context.Context, parent EntityType, parentID string, desired []string) (*ReconcileResult, error) {
	const op = "reconcile"
	g := tx.engine.graph

	edge, ok := g.Membership(parent)
	if !ok {
		return nil, &Error{
			Op: op, Kind: KindInternal, Entity: parent, ID: parentID,
			Err: fmt.Errorf("%w: %s has no reconcilable collection", ErrUnknownEntity, parent),
		}
	}
	parentID = NormalizeID(parentID)
	fail := func(t EntityType, err error) (*ReconcileResult, error) {
		return nil, &Error{Op: op, Kind: classifyKind(err), Entity: t, ID: parentID, Err: err}
	}

	exists, err := tx.store.Exists(ctx, parent, parentID)
	if err != nil {
		return fail(parent, err)
	}
	if !exists {
		return nil, notFound(op, parent, parentID)
	}

	currentIDs, err := tx.store.Pluck(ctx, edge.Child, "id", edge.ForeignKey, []string{parentID})
	if err != nil {
		return fail(edge.Child, err)
	}
	current := NewIDSet(currentIDs...)

	want := NewIDSet(desired...)
	existingIDs, err := tx.store.Pluck(ctx, edge.Child, "id", "id", want.Slice())
	if err != nil {
		return fail(edge.Child, err)
	}
	resolved := NewIDSet(existingIDs...)

	toAdd := resolved.Difference(current)
	toRemove := current.Difference(resolved)
	toKeep := current.Intersect(resolved)

	if toAdd.Len() > 0 {
		if _, err := tx.store.Relink(ctx, edge.Child, edge.ForeignKey, toAdd.Slice(), parentID); err != nil {
			return fail(edge.Child, err)
		}
	}

	orphans := zeroCounts(g, edge.Child)
	if toRemove.Len() > 0 {
		deleted, err := tx.deleteSubtrees(ctx, edge.Child, toRemove)
		if err != nil {
			return nil, err
		}
		orphans = deleted
	}

	result := &ReconcileResult{
		Parent:         parent,
		ParentID:       parentID,
		Child:          edge.Child,
		Linked:         toAdd.Slice(),
		Unlinked:       toRemove.Slice(),
		Kept:           toKeep.Slice(),
		Ignored:        want.Difference(resolved).Slice(),
		OrphansDeleted: orphans,
	}
	tx.reconciled = append(tx.reconciled, result)
	return result, nil
}

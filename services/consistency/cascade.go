package consistency

import "context"

// DeleteSubtree removes root and every row that transitively depends on it.
// The returned counts hold an entry for each type in the root's deletion
// order, zero when nothing of that type was reachable.
func (tx *Tx) DeleteSubtree(ctx context.Context, root EntityType, id string) (Counts, error) {
	const op = "delete_subtree"

	if _, ok := tx.engine.graph.Node(root); !ok {
		return nil, &Error{Op: op, Kind: KindInternal, Entity: root, ID: id, Err: ErrUnknownEntity}
	}
	id = NormalizeID(id)
	if id == "" {
		return nil, notFound(op, root, id)
	}

	ok, err := tx.store.Exists(ctx, root, id)
	if err != nil {
		return nil, &Error{Op: op, Kind: classifyKind(err), Entity: root, ID: id, Err: err}
	}
	if !ok {
		return nil, notFound(op, root, id)
	}

	counts, err := tx.deleteSubtrees(ctx, root, NewIDSet(id))
	if err != nil {
		return nil, err
	}
	if counts[root] == 0 {
		// Removed by someone else between the existence check and the delete
		return nil, notFound(op, root, id)
	}
	return counts, nil
}

// deleteSubtrees removes every root in roots together with its descendants.
//
// Descendant ids are resolved one level at a time, parents before children,
// because each level is filtered by the ids found for the level above. Rows
// are then deleted leaves first, following the graph's deletion order.
func (tx *Tx) deleteSubtrees(ctx context.Context, root EntityType, roots IDSet) (Counts, error) {
	const op = "delete_subtree"
	g := tx.engine.graph
	order := g.DeletionOrder(root)

	levels := map[EntityType]IDSet{root: roots}
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		parents := levels[t]
		if parents.Len() == 0 {
			continue
		}
		for _, e := range g.Children(t) {
			ids, err := tx.store.Pluck(ctx, e.Child, "id", e.ForeignKey, parents.Slice())
			if err != nil {
				return nil, &Error{Op: op, Kind: classifyKind(err), Entity: e.Child, Err: err}
			}
			levels[e.Child] = levels[e.Child].Union(NewIDSet(ids...))
		}
	}

	counts := make(Counts, len(order))
	for _, t := range order {
		ids := levels[t]
		if ids.Len() == 0 {
			counts[t] = 0
			continue
		}
		n, err := tx.store.DeleteByIDs(ctx, t, ids.Slice())
		if err != nil {
			return nil, &Error{Op: op, Kind: classifyKind(err), Entity: t, Err: err}
		}
		counts[t] = n
	}

	tx.deleted.Add(counts)
	return counts, nil
}

// zeroCounts is the result of a cascade that found nothing to delete
func zeroCounts(g Graph, root EntityType) Counts {
	order := g.DeletionOrder(root)
	c := make(Counts, len(order))
	for _, t := range order {
		c[t] = 0
	}
	return c
}

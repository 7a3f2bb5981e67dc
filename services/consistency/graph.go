package consistency

import (
	"fmt"
	"sort"
)

// Edge points from a parent to a child table through the child's required
// foreign-key column
type Edge struct {
	Child      EntityType
	ForeignKey string
}

// Node describes one table in the dependency graph
type Node struct {
	// Parents lists the tables this one holds a required foreign key to
	Parents []EntityType
	// Children are deleted before this node, in the listed order
	Children []Edge
	// Membership is the child collection that can be replaced on update.
	// Nil when the type has no reconcilable collection.
	Membership *Edge
}

// Graph is a static description of parent/child edges in the catalog
type Graph struct {
	nodes map[EntityType]Node
}

// DefaultGraph returns the catalog dependency graph:
//
//	Curriculum -> Faculty -> Course -> {Enrollment, Registration, Requirement}
//	User -> {Enrollment, Registration, UserRole}
//	Role -> UserRole
//	Applicant (standalone until upgraded to a User)
func DefaultGraph() Graph {
	return Graph{nodes: map[EntityType]Node{
		Curriculum: {
			Children:   []Edge{{Child: Faculty, ForeignKey: "curriculum_id"}},
			Membership: &Edge{Child: Faculty, ForeignKey: "curriculum_id"},
		},
		Faculty: {
			Parents:    []EntityType{Curriculum},
			Children:   []Edge{{Child: Course, ForeignKey: "faculty_id"}},
			Membership: &Edge{Child: Course, ForeignKey: "faculty_id"},
		},
		Course: {
			Parents: []EntityType{Faculty},
			Children: []Edge{
				{Child: Enrollment, ForeignKey: "course_id"},
				{Child: CourseRegistration, ForeignKey: "course_id"},
				{Child: CourseRequirement, ForeignKey: "course_id"},
			},
		},
		CourseRequirement: {
			Parents: []EntityType{Course},
		},
		CourseRegistration: {
			Parents: []EntityType{User, Course},
		},
		Enrollment: {
			Parents: []EntityType{User, Course},
		},
		User: {
			Children: []Edge{
				{Child: Enrollment, ForeignKey: "user_id"},
				{Child: CourseRegistration, ForeignKey: "user_id"},
				{Child: UserRole, ForeignKey: "user_id"},
			},
		},
		Role: {
			Children: []Edge{{Child: UserRole, ForeignKey: "role_id"}},
		},
		UserRole: {
			Parents: []EntityType{User, Role},
		},
		Applicant: {},
	}}
}

// Node returns the description of t
func (g Graph) Node(t EntityType) (Node, bool) {
	n, ok := g.nodes[t]
	return n, ok
}

// Children returns the child edges of t in deletion order
func (g Graph) Children(t EntityType) []Edge {
	return g.nodes[t].Children
}

// Membership returns the reconcilable child collection of parent
func (g Graph) Membership(parent EntityType) (Edge, bool) {
	n, ok := g.nodes[parent]
	if !ok || n.Membership == nil {
		return Edge{}, false
	}
	return *n.Membership, true
}

// DeletionOrder lists every type reachable from root, leaves first and root
// last. Deleting in this order never violates a foreign key inside the subtree.
func (g Graph) DeletionOrder(root EntityType) []EntityType {
	var order []EntityType
	seen := make(map[EntityType]bool)

	var visit func(t EntityType)
	visit = func(t EntityType) {
		if seen[t] {
			return
		}
		seen[t] = true
		for _, e := range g.nodes[t].Children {
			visit(e.Child)
		}
		order = append(order, t)
	}
	visit(root)

	return order
}

// Validate checks the graph is acyclic and that every edge is mirrored by the
// child's required parents
func (g Graph) Validate() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[EntityType]int, len(g.nodes))

	var walk func(t EntityType) error
	walk = func(t EntityType) error {
		switch state[t] {
		case visiting:
			return fmt.Errorf("dependency graph has a cycle through %s", t)
		case done:
			return nil
		}
		state[t] = visiting
		for _, e := range g.nodes[t].Children {
			child, ok := g.nodes[e.Child]
			if !ok {
				return fmt.Errorf("%s has child %s which is not in the graph", t, e.Child)
			}
			if e.ForeignKey == "" {
				return fmt.Errorf("edge %s -> %s has no foreign key", t, e.Child)
			}
			if !containsType(child.Parents, t) {
				return fmt.Errorf("%s does not list %s as a required parent", e.Child, t)
			}
			if err := walk(e.Child); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}

	for t, n := range g.nodes {
		if n.Membership != nil && !containsEdge(n.Children, *n.Membership) {
			return fmt.Errorf("membership of %s is not one of its child edges", t)
		}
		if err := walk(t); err != nil {
			return err
		}
	}
	return nil
}

// Relation is one parent/child edge resolved to table names
type Relation struct {
	Parent      EntityType
	Child       EntityType
	ParentTable string
	ChildTable  string
	ForeignKey  string
}

// Name identifies the relation in logs and metric labels, e.g. "courses.faculty_id"
func (r Relation) Name() string {
	return r.ChildTable + "." + r.ForeignKey
}

// Relations lists every edge of the graph, sorted by name
func (g Graph) Relations() ([]Relation, error) {
	var out []Relation
	for parent, n := range g.nodes {
		parentTable, err := Table(parent)
		if err != nil {
			return nil, err
		}
		for _, e := range n.Children {
			childTable, err := Table(e.Child)
			if err != nil {
				return nil, err
			}
			out = append(out, Relation{
				Parent:      parent,
				Child:       e.Child,
				ParentTable: parentTable,
				ChildTable:  childTable,
				ForeignKey:  e.ForeignKey,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func containsType(list []EntityType, t EntityType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

func containsEdge(list []Edge, e Edge) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

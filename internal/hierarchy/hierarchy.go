// Package hierarchy implements the parent/child and dependency graph
// walks, cycle detection, progress roll-up, and sibling-sequence
// operations backing jive_get_hierarchy. It operates purely on data
// fetched from a *store.Store; it holds no state of its own.
package hierarchy

import (
	"context"

	"github.com/vuxtra/jivemcp/internal/apperr"
	"github.com/vuxtra/jivemcp/internal/model"
	"github.com/vuxtra/jivemcp/internal/store"
)

// Node is one level of a hierarchy/dependency walk result.
type Node struct {
	Item     *model.WorkItem `json:"work_item"`
	Children []*Node         `json:"children,omitempty"`
}

// RelationshipType enumerates jive_get_hierarchy's traversal modes.
type RelationshipType string

const (
	RelChildren      RelationshipType = "children"
	RelParents       RelationshipType = "parents"
	RelDependencies  RelationshipType = "dependencies"
	RelDependents    RelationshipType = "dependents"
	RelFullHierarchy RelationshipType = "full_hierarchy"
)

const defaultMaxDepth = 10

// WouldCreateCycle runs a DFS from dst looking for a path back to src; if
// found, adding the edge src->dst would close a cycle.
func WouldCreateCycle(edges map[string][]string, src, dst string) bool {
	if src == dst {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{dst}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == src {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, edges[n]...)
	}
	return false
}

// ValidateDependencyEdge checks dependency-graph acyclicity before
// committing a new
// dependency src->dst, returning a CycleDetected apperr naming the
// offending edge on failure.
func ValidateDependencyEdge(ctx context.Context, s *store.Store, src, dst string) error {
	edges, err := s.AllDependencyEdges(ctx)
	if err != nil {
		return err
	}
	if WouldCreateCycle(edges, src, dst) {
		return apperr.Newf(apperr.CycleDetected, "adding dependency %s -> %s would create a cycle", src, dst).
			WithDetails(map[string]any{"edge": [2]string{src, dst}})
	}
	return nil
}

// ValidateParentEdge checks acyclicity on the parent graph before
// re-parenting childID under newParentID (used by move).
func ValidateParentEdge(ctx context.Context, s *store.Store, childID, newParentID string) error {
	parents, err := s.AllParentEdges(ctx)
	if err != nil {
		return err
	}
	edges := make(map[string][]string, len(parents))
	for child, parent := range parents {
		edges[parent] = append(edges[parent], child)
	}
	if WouldCreateCycle(edges, newParentID, childID) {
		return apperr.Newf(apperr.CycleDetected, "re-parenting %s under %s would create a cycle", childID, newParentID).
			WithDetails(map[string]any{"edge": [2]string{childID, newParentID}})
	}
	return nil
}

// WalkChildren does an iterative BFS down the parent edge to maxDepth
// levels, returning a tree rooted at rootID.
func WalkChildren(ctx context.Context, s *store.Store, rootID string, maxDepth int) (*Node, error) {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	root, err := s.GetWorkItem(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return buildChildren(ctx, s, root, 0, maxDepth)
}

func buildChildren(ctx context.Context, s *store.Store, item *model.WorkItem, depth, maxDepth int) (*Node, error) {
	node := &Node{Item: item}
	if depth >= maxDepth {
		return node, nil
	}
	children, err := s.ChildrenOf(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		child, err := buildChildren(ctx, s, c, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// WalkParents follows the parent edge up to the root (or maxDepth
// levels), returning the chain from itemID's immediate parent upward.
func WalkParents(ctx context.Context, s *store.Store, itemID string, maxDepth int) ([]*model.WorkItem, error) {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	var chain []*model.WorkItem
	current, err := s.GetWorkItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{current.ID: true}
	for depth := 0; depth < maxDepth && current.ParentID != nil; depth++ {
		if visited[*current.ParentID] {
			return nil, apperr.Newf(apperr.CycleDetected, "parent cycle detected at %s", *current.ParentID)
		}
		parent, err := s.GetWorkItem(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
		visited[parent.ID] = true
		current = parent
	}
	return chain, nil
}

// DependencyClosure does a BFS over the dependency (or reverse-dependency)
// graph up to maxDepth levels and returns the visited ids in discovery
// order, excluding rootID itself.
func DependencyClosure(ctx context.Context, s *store.Store, rootID string, reverse bool, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}
	var order []string
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			var neighbors []string
			var err error
			if reverse {
				neighbors, err = s.ListDependents(ctx, id)
			} else {
				neighbors, err = s.ListDependencies(ctx, id)
			}
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					order = append(order, n)
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return order, nil
}

package store

import (
	"fmt"

	"github.com/mapgrove/mapsync/models"
)

// validateTree enforces the node invariants before a write: every non-nil
// ParentID resolves to a node of the same map, and the parent chain is
// acyclic.
func validateTree(nodes []models.Node) error {
	byID := make(map[string]models.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		if _, ok := byID[*n.ParentID]; !ok {
			return fmt.Errorf("%w: node %s references missing parent %s", ErrInvalidTree, n.ID, *n.ParentID)
		}

		// walk the parent chain; revisiting the start means a cycle
		seen := map[string]bool{n.ID: true}
		cur := n
		for cur.ParentID != nil {
			parent, ok := byID[*cur.ParentID]
			if !ok {
				break
			}
			if seen[parent.ID] {
				return fmt.Errorf("%w: cycle through node %s", ErrInvalidTree, parent.ID)
			}
			seen[parent.ID] = true
			cur = parent
		}
	}

	return nil
}

// Package catalog builds the two-level category tree.
//
// Categories are stored with parent pointers. Tree indexes them once into an
// arena so lookups do not rescan the list.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tokoisi/backend/internal/domain"
)

const PathSeparator = " › "

var ErrUnknownCategory = errors.New("unknown category")

type node struct {
	category domain.Category
	parent   int
	children []int
}

type Tree struct {
	nodes []node
	index map[string]int
	roots []int
}

// Build indexes categories into a tree. It rejects unknown parents, self
// parents and any category nested below a sub-category.
func Build(categories []domain.Category) (*Tree, error) {
	t := &Tree{
		nodes: make([]node, 0, len(categories)),
		index: make(map[string]int, len(categories)),
	}

	sorted := make([]domain.Category, len(categories))
	copy(sorted, categories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	for _, category := range sorted {
		if _, exists := t.index[category.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate category %s", domain.ErrValidation, category.ID)
		}
		t.index[category.ID] = len(t.nodes)
		t.nodes = append(t.nodes, node{category: category, parent: -1})
	}

	for i := range t.nodes {
		category := t.nodes[i].category
		if category.ParentID == nil || *category.ParentID == "" {
			t.roots = append(t.roots, i)
			continue
		}

		parentID := *category.ParentID
		if parentID == category.ID {
			return nil, fmt.Errorf("%w: category %s cannot be its own parent", domain.ErrValidation, category.ID)
		}
		p, ok := t.index[parentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrUnknownCategory, parentID, category.ID)
		}
		if pp := t.nodes[p].category.ParentID; pp != nil && *pp != "" {
			return nil, fmt.Errorf("%w: %s is nested below sub-category %s", domain.ErrValidation, category.ID, parentID)
		}

		t.nodes[i].parent = p
		t.nodes[p].children = append(t.nodes[p].children, i)
	}

	return t, nil
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Get(id string) (domain.Category, bool) {
	i, ok := t.index[id]
	if !ok {
		return domain.Category{}, false
	}
	return t.nodes[i].category, true
}

func (t *Tree) Roots() []domain.Category {
	return t.collect(t.roots)
}

func (t *Tree) Children(id string) []domain.Category {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.collect(t.nodes[i].children)
}

func (t *Tree) Parent(id string) (domain.Category, bool) {
	i, ok := t.index[id]
	if !ok || t.nodes[i].parent < 0 {
		return domain.Category{}, false
	}
	return t.nodes[t.nodes[i].parent].category, true
}

func (t *Tree) HasChildren(id string) bool {
	i, ok := t.index[id]
	return ok && len(t.nodes[i].children) > 0
}

// Subtree returns id followed by the ids of its children. Filtering products
// by a parent category uses it to include sub-categories.
func (t *Tree) Subtree(id string) []string {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	ids := []string{id}
	for _, c := range t.nodes[i].children {
		ids = append(ids, t.nodes[c].category.ID)
	}
	return ids
}

// Path renders "Parent › Child" for a sub-category and the bare name otherwise.
func (t *Tree) Path(id string) string {
	i, ok := t.index[id]
	if !ok {
		return ""
	}
	n := t.nodes[i]
	if n.parent < 0 {
		return n.category.Name
	}
	return t.nodes[n.parent].category.Name + PathSeparator + n.category.Name
}

// Nodes returns the roots with their children attached, for the tree endpoint.
func (t *Tree) Nodes() []domain.CategoryNode {
	out := make([]domain.CategoryNode, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, domain.CategoryNode{
			Category: t.nodes[r].category,
			Children: t.collect(t.nodes[r].children),
		})
	}
	return out
}

// ValidateParent checks that id may be placed under parentID. An empty id
// means a new category.
func (t *Tree) ValidateParent(id string, parentID string) error {
	if parentID == "" {
		return nil
	}
	if id != "" && id == parentID {
		return fmt.Errorf("%w: category cannot be its own parent", domain.ErrValidation)
	}
	p, ok := t.index[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrUnknownCategory, parentID)
	}
	if t.nodes[p].parent >= 0 {
		return fmt.Errorf("%w: parent %s is already a sub-category", domain.ErrValidation, parentID)
	}
	if id != "" && t.HasChildren(id) {
		return fmt.Errorf("%w: category %s has sub-categories and cannot be nested", domain.ErrValidation, id)
	}
	return nil
}

func (t *Tree) collect(idx []int) []domain.Category {
	out := make([]domain.Category, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.nodes[i].category)
	}
	return out
}

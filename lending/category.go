package lending

// Instead of navigable object references, categories live in an arena
// addressed by stable ids with an optional parent id. Traversal walks the
// arena, which keeps the forest free of ownership cycles.

// CategoryID represents a category identifier.
type CategoryID = string

// Category is one node of the category forest. A Category with an empty
// ParentID is a root category.
type Category struct {
	ID       CategoryID
	Name     string
	ParentID CategoryID
}

// CategoryHierarchy is a forest of named categories supporting
// ancestor-path walks. The forest is assumed acyclic; whoever builds it
// must preserve that invariant.
type CategoryHierarchy struct {
	categories map[CategoryID]Category
}

// BuildCategoryHierarchy creates a CategoryHierarchy from the given categories.
func BuildCategoryHierarchy(categories ...Category) *CategoryHierarchy {
	arena := make(map[CategoryID]Category, len(categories))
	for _, category := range categories {
		arena[category.ID] = category
	}

	return &CategoryHierarchy{categories: arena}
}

// Category returns the category with the given id, if present.
func (h *CategoryHierarchy) Category(id CategoryID) (Category, bool) {
	category, ok := h.categories[id]
	return category, ok
}

// Root walks the parent links from the given category to its furthest
// ancestor and returns that root's id. A category unknown to the arena,
// or one whose parent link dangles, is its own root.
func (h *CategoryHierarchy) Root(id CategoryID) CategoryID {
	current := id

	for {
		category, ok := h.Category(current)
		if !ok || category.ParentID == "" {
			return current
		}

		current = category.ParentID
	}
}

// IsDescendantOrEqual reports whether candidate equals the given category
// or has it anywhere on its ancestor path.
func (h *CategoryHierarchy) IsDescendantOrEqual(candidate CategoryID, of CategoryID) bool {
	current := candidate

	for {
		if current == of {
			return true
		}

		category, ok := h.Category(current)
		if !ok || category.ParentID == "" {
			return false
		}

		current = category.ParentID
	}
}

// HasAncestorIn reports whether the given category, or any of its
// ancestors, matches a member of set.
func (h *CategoryHierarchy) HasAncestorIn(id CategoryID, set map[CategoryID]struct{}) bool {
	current := id

	for {
		if _, member := set[current]; member {
			return true
		}

		category, ok := h.Category(current)
		if !ok || category.ParentID == "" {
			return false
		}

		current = category.ParentID
	}
}

// ContainsRedundantCategory reports whether one of the given categories is
// a strict ancestor of another, i.e. the set carries no extra information
// over its more specific members. Used to reject items whose requested
// categories are redundant.
func (h *CategoryHierarchy) ContainsRedundantCategory(ids []CategoryID) bool {
	set := make(map[CategoryID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	for _, id := range ids {
		category, ok := h.Category(id)
		if !ok || category.ParentID == "" {
			continue
		}

		// start the walk at the parent so a category never matches itself
		if h.HasAncestorIn(category.ParentID, set) {
			return true
		}
	}

	return false
}

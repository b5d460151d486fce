package service

import (
	"sort"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// maxBreadcrumbDepth bounds parent walks so a corrupt cycle cannot loop forever.
const maxBreadcrumbDepth = 10

// BuildTree arranges a flat category list into a forest. Children are ordered
// by priority then name. counts maps category id to its direct available products.
// Categories whose parent is missing from the list become roots.
func BuildTree(categories []models.Category, counts map[int64]int) []*models.CategoryNode {
	nodes := make(map[int64]*models.CategoryNode, len(categories))
	for i := range categories {
		c := &categories[i]
		nodes[c.ID] = &models.CategoryNode{
			ID:            c.ID,
			Name:          c.Name,
			Slug:          c.Slug,
			ParentID:      c.ParentID,
			Priority:      c.Priority,
			IconClass:     c.IconClass,
			IconColor:     c.IconColor,
			IconImage:     c.IconImage,
			PriorityLevel: models.PriorityLevelOf(c.Priority),
			ProductCount:  counts[c.ID],
			Children:      []*models.CategoryNode{},
		}
	}

	roots := []*models.CategoryNode{}
	for i := range categories {
		node := nodes[categories[i].ID]
		if pid := categories[i].ParentID; pid != nil {
			if parent, ok := nodes[*pid]; ok && *pid != node.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	// Nodes on a parent cycle are unreachable from any root; cut each cycle at its first member.
	reached := make(map[int64]bool, len(nodes))
	for _, root := range roots {
		markReached(root, reached)
	}
	for i := range categories {
		node := nodes[categories[i].ID]
		if reached[node.ID] {
			continue
		}
		parent := nodes[*node.ParentID]
		parent.Children = removeNode(parent.Children, node.ID)
		node.ParentID = nil
		roots = append(roots, node)
		markReached(node, reached)
	}

	sortNodes(roots)
	for _, root := range roots {
		finishNode(root, 1, 0)
	}
	return roots
}

// finishNode sorts children, assigns levels and sums subtree counts.
func finishNode(n *models.CategoryNode, level, guard int) int {
	n.Level = level
	n.TotalProductCount = n.ProductCount
	if guard >= maxBreadcrumbDepth {
		return n.TotalProductCount
	}
	sortNodes(n.Children)
	for _, child := range n.Children {
		n.TotalProductCount += finishNode(child, level+1, guard+1)
	}
	return n.TotalProductCount
}

func markReached(n *models.CategoryNode, reached map[int64]bool) {
	if reached[n.ID] {
		return
	}
	reached[n.ID] = true
	for _, child := range n.Children {
		markReached(child, reached)
	}
}

func removeNode(nodes []*models.CategoryNode, id int64) []*models.CategoryNode {
	out := nodes[:0]
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func sortNodes(nodes []*models.CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Priority != nodes[j].Priority {
			return nodes[i].Priority < nodes[j].Priority
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// Breadcrumb returns the path from the root to the category with the given id.
func Breadcrumb(categories []models.Category, id int64) []models.CategoryRef {
	byID := indexCategories(categories)
	var path []models.CategoryRef
	cur, ok := byID[id]
	for depth := 0; ok && depth < maxBreadcrumbDepth; depth++ {
		path = append(path, cur.Ref())
		if cur.ParentID == nil {
			break
		}
		cur, ok = byID[*cur.ParentID]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	if path == nil {
		path = []models.CategoryRef{}
	}
	return path
}

// Descendants returns id and the ids of every category below it.
func Descendants(categories []models.Category, id int64) []int64 {
	children := make(map[int64][]int64, len(categories))
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	out := []int64{id}
	seen := map[int64]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}

// Depth returns the level of a category, roots being 1.
func Depth(categories []models.Category, id int64) int {
	return len(Breadcrumb(categories, id))
}

// SubtreeHeight returns the number of levels from id down to its deepest descendant, id included.
func SubtreeHeight(categories []models.Category, id int64) int {
	children := make(map[int64][]int64, len(categories))
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	var height func(int64, int) int
	height = func(n int64, guard int) int {
		if guard >= maxBreadcrumbDepth {
			return 1
		}
		best := 0
		for _, child := range children[n] {
			if h := height(child, guard+1); h > best {
				best = h
			}
		}
		return best + 1
	}
	return height(id, 0)
}

// FindNode looks up a node by slug anywhere in the forest.
func FindNode(roots []*models.CategoryNode, slug string) *models.CategoryNode {
	for _, n := range roots {
		if n.Slug == slug {
			return n
		}
		if found := FindNode(n.Children, slug); found != nil {
			return found
		}
	}
	return nil
}

func indexCategories(categories []models.Category) map[int64]*models.Category {
	byID := make(map[int64]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	return byID
}

// NodeBreadcrumb walks parent links inside an already built forest.
func NodeBreadcrumb(roots []*models.CategoryNode, id int64) []models.CategoryRef {
	byID := map[int64]*models.CategoryNode{}
	var walk func([]*models.CategoryNode)
	walk = func(nodes []*models.CategoryNode) {
		for _, n := range nodes {
			byID[n.ID] = n
			walk(n.Children)
		}
	}
	walk(roots)

	path := []models.CategoryRef{}
	cur, ok := byID[id]
	for depth := 0; ok && depth < maxBreadcrumbDepth; depth++ {
		path = append([]models.CategoryRef{{ID: cur.ID, Name: cur.Name, Slug: cur.Slug}}, path...)
		if cur.ParentID == nil {
			break
		}
		cur, ok = byID[*cur.ParentID]
	}
	return path
}

// SubtreeIDs returns the ids of n and all of its descendants.
func SubtreeIDs(n *models.CategoryNode) []int64 {
	ids := []int64{n.ID}
	for _, child := range n.Children {
		ids = append(ids, SubtreeIDs(child)...)
	}
	return ids
}

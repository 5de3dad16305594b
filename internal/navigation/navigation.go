// Package navigation turns the CMS link tree into the two-level category
// hierarchy the site's menus render, enriched with per-item icon and
// description from the matching stories.
package navigation

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/storysite/internal/cms"
)

// RootCategory groups items that live directly at the site root.
const RootCategory = "root"

// Item is one navigation entry, immutable once built.
type Item struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	Slug         string `json:"slug"`
	Category     string `json:"category"`
	CategoryName string `json:"categoryName"`
	IsFolder     bool   `json:"isFolder"`
	Position     int    `json:"position"`
	IsRootLevel  bool   `json:"isRootLevel"`
}

// Group is one ordered (category, items) pair. Grouped navigation is an
// explicit ordered slice; category order follows the owning folder position,
// never map iteration order.
type Group struct {
	Category     string `json:"category"`
	CategoryName string `json:"categoryName"`
	Items        []Item `json:"items"`
}

// Data is the complete navigation derivation for one fetch.
type Data struct {
	Items     []Item  `json:"navItems"`
	Grouped   []Group `json:"groupedNavItems"`
	RootItems []Item  `json:"rootItems"`
}

// Empty is the all-empty navigation returned when the upstream fetch fails.
func Empty() Data {
	return Data{Items: []Item{}, Grouped: []Group{}, RootItems: []Item{}}
}

// Enrichment carries the per-story fields merged into non-folder items.
type Enrichment struct {
	Description string
	Icon        string
}

// BuildFromLinks derives navigation from a raw link set. enrichment maps
// normalized slugs to story content fields; it may be nil.
func BuildFromLinks(links []cms.Link, enrichment map[string]Enrichment) Data {
	filtered := FilterLinks(links)
	sortByPosition(filtered)

	topFolders := make([]cms.Link, 0)
	folderByID := make(map[int64]cms.Link)
	nestedFolderIDs := make(map[int64]bool)
	for _, l := range filtered {
		if !l.IsFolder {
			continue
		}
		if l.HasParent() {
			nestedFolderIDs[l.ID] = true
		} else {
			topFolders = append(topFolders, l)
			folderByID[l.ID] = l
		}
	}

	// Only one level of folder nesting is surfaced: nested folders and the
	// pages under them are silently flattened away.
	visible := make([]cms.Link, 0, len(filtered))
	for _, l := range filtered {
		if l.IsFolder && nestedFolderIDs[l.ID] {
			continue
		}
		if !l.IsFolder && l.HasParent() && nestedFolderIDs[l.ParentID] {
			continue
		}
		visible = append(visible, l)
	}
	// Filtering can change adjacency, so sort again before categorizing.
	sortByPosition(visible)

	items := make([]Item, 0, len(visible))
	for _, l := range visible {
		item := Item{
			ID:           l.ID,
			Name:         l.Name,
			Slug:         cms.NormalizeSlug(l.Slug),
			IsFolder:     l.IsFolder,
			Position:     l.Position,
			Category:     RootCategory,
			CategoryName: "Root",
		}

		switch {
		case l.IsFolder:
			item.Category = CategorySlug(l.Name)
			item.CategoryName = l.Name
		case l.HasParent():
			if folder, ok := folderByID[l.ParentID]; ok {
				item.Category = CategorySlug(folder.Name)
				item.CategoryName = folder.Name
			} else {
				item.IsRootLevel = true
			}
		default:
			item.IsRootLevel = true
		}

		if !item.IsFolder {
			if e, ok := enrichment[item.Slug]; ok {
				item.Description = e.Description
				item.Icon = e.Icon
			}
		}

		items = append(items, item)
	}

	return Data{
		Items:     items,
		Grouped:   groupByCategory(items, topFolders),
		RootItems: rootItems(items),
	}
}

// FilterLinks drops the home page and private entries (name or slug starting
// with an underscore). The filter is idempotent.
func FilterLinks(links []cms.Link) []cms.Link {
	out := make([]cms.Link, 0, len(links))
	for _, l := range links {
		if l.Slug == "home" {
			continue
		}
		if strings.HasPrefix(l.Name, "_") || strings.HasPrefix(l.Slug, "_") {
			continue
		}
		out = append(out, l)
	}
	return out
}

// CategorySlug derives the grouping key from a folder name: lowercased,
// whitespace runs collapsed to single hyphens.
func CategorySlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func sortByPosition(links []cms.Link) {
	sort.SliceStable(links, func(i, j int) bool { return links[i].Position < links[j].Position })
}

// groupByCategory buckets non-folder, non-root items by category, each bucket
// sorted by position, with bucket order following the owning folder position.
func groupByCategory(items []Item, topFolders []cms.Link) []Group {
	buckets := make(map[string][]Item)
	names := make(map[string]string)
	for _, item := range items {
		if item.IsFolder || item.IsRootLevel {
			continue
		}
		buckets[item.Category] = append(buckets[item.Category], item)
		names[item.Category] = item.CategoryName
	}
	for cat := range buckets {
		bucket := buckets[cat]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].Position < bucket[j].Position })
	}

	// Top-level folders are already position-sorted; folders with no grouped
	// items are skipped.
	ordered := make([]cms.Link, len(topFolders))
	copy(ordered, topFolders)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	groups := make([]Group, 0, len(buckets))
	for _, folder := range ordered {
		cat := CategorySlug(folder.Name)
		bucket, ok := buckets[cat]
		if !ok {
			continue
		}
		groups = append(groups, Group{Category: cat, CategoryName: names[cat], Items: bucket})
	}
	return groups
}

func rootItems(items []Item) []Item {
	out := make([]Item, 0)
	for _, item := range items {
		if item.IsRootLevel && !item.IsFolder {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

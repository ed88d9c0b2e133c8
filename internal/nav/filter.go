package nav

import (
	"strings"

	"github.com/datastudio/warehouse-admin/internal/rbac"
)

// Filter prunes items to those the permission set can reach. Groups keep only
// permitted children and disappear when none remain. Declaration order is
// preserved and the input is never modified.
func Filter(items []Item, perms []rbac.Permission) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.IsGroup() {
			children := make([]Item, 0, len(item.Children))
			for _, child := range item.Children {
				if visible(child, perms) {
					children = append(children, child)
				}
			}
			if len(children) == 0 {
				continue
			}
			item.Children = children
			out = append(out, item)
			continue
		}
		if visible(item, perms) {
			out = append(out, item)
		}
	}
	return out
}

func visible(item Item, perms []rbac.Permission) bool {
	return item.Required == nil || rbac.Satisfies(perms, *item.Required)
}

// ActiveKey picks the menu key to highlight for path. The root path maps to
// the dashboard, as does anything unmatched.
func ActiveKey(items []Item, path string) string {
	const fallback = "dashboard"
	if path == "/" {
		return fallback
	}
	for _, item := range items {
		if matches(item.Path, path) {
			return item.Key
		}
		for _, child := range item.Children {
			if matches(child.Path, path) {
				return child.Key
			}
		}
	}
	return fallback
}

func matches(itemPath, path string) bool {
	return itemPath != "" && itemPath != "/" && strings.HasPrefix(path, itemPath)
}

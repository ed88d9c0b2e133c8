// Package nav derives the visible navigation tree from the session's
// permissions.
package nav

import "github.com/datastudio/warehouse-admin/internal/rbac"

// Item is a menu node. A node with a non-nil Children slice is a group; its
// visibility comes from its children alone.
type Item struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Path     string      `json:"path,omitempty"`
	Required *rbac.Check `json:"required,omitempty"`
	Children []Item      `json:"children,omitempty"`
}

// IsGroup reports whether the item is a group node.
func (i Item) IsGroup() bool {
	return i.Children != nil
}

func need(resource, action string) *rbac.Check {
	c := rbac.Need(resource, action)
	return &c
}

// Default returns the console menu in display order.
func Default() []Item {
	return []Item{
		{Key: "dashboard", Label: "Dashboard", Path: "/", Required: need(rbac.ResourceReports, rbac.ActionRead)},
		{Key: "catalog", Label: "Items & Categories", Children: []Item{
			{Key: "products", Label: "Products", Path: "/products", Required: need(rbac.ResourceProducts, rbac.ActionRead)},
			{Key: "categories", Label: "Categories", Path: "/categories", Required: need(rbac.ResourceProducts, rbac.ActionRead)},
		}},
		{Key: "stock", Label: "Stock", Children: []Item{
			{Key: "movements", Label: "Movements", Path: "/stock/movements", Required: need(rbac.ResourceProducts, rbac.ActionRead)},
			{Key: "balances", Label: "Current Stock", Path: "/stock/balances", Required: need(rbac.ResourceProducts, rbac.ActionRead)},
			{Key: "reorder", Label: "Reorder Alerts", Path: "/stock/reorder", Required: need(rbac.ResourceProducts, rbac.ActionRead)},
		}},
		{Key: "purchasing", Label: "Suppliers & Purchasing", Children: []Item{
			{Key: "suppliers", Label: "Suppliers", Path: "/suppliers", Required: need(rbac.ResourceSuppliers, rbac.ActionRead)},
			{Key: "po", Label: "Purchase Orders", Path: "/po", Required: need(rbac.ResourcePurchaseOrders, rbac.ActionRead)},
		}},
		{Key: "dispatch-group", Label: "Dispatch", Children: []Item{
			{Key: "dispatch", Label: "Dispatch Orders", Path: "/dispatch", Required: need(rbac.ResourceDispatches, rbac.ActionRead)},
		}},
		{Key: "reports", Label: "Reports", Children: []Item{
			{Key: "purchase-history", Label: "Purchase History", Path: "/reports/purchase-history", Required: need(rbac.ResourceReports, rbac.ActionRead)},
			{Key: "dispatch-history", Label: "Dispatch History", Path: "/reports/dispatch-history", Required: need(rbac.ResourceReports, rbac.ActionRead)},
			{Key: "fast-movers", Label: "Fast Movers", Path: "/reports/fast-movers", Required: need(rbac.ResourceReports, rbac.ActionRead)},
			{Key: "slow-movers", Label: "Slow Movers", Path: "/reports/slow-movers", Required: need(rbac.ResourceReports, rbac.ActionRead)},
		}},
		{Key: "admin", Label: "Admin", Children: []Item{
			{Key: "users", Label: "User Management", Path: "/admin/users", Required: need(rbac.ResourceUsers, rbac.ActionRead)},
			{Key: "roles", Label: "Role Management", Path: "/admin/roles", Required: need(rbac.ResourceRoles, rbac.ActionRead)},
		}},
	}
}

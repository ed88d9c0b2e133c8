package nav

import "context"

type menuContextKey struct{}

// WithMenu stores the request's menu in ctx.
func WithMenu(ctx context.Context, m *Menu) context.Context {
	return context.WithValue(ctx, menuContextKey{}, m)
}

// FromContext returns the request's menu, or nil.
func FromContext(ctx context.Context) *Menu {
	m, _ := ctx.Value(menuContextKey{}).(*Menu)
	return m
}

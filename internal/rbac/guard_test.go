package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPrincipal struct {
	signedIn bool
	perms    []Permission
}

func (s stubPrincipal) IsAuthenticated() bool { return s.signedIn }
func (s stubPrincipal) Grants() []Permission  { return s.perms }

func TestAuthenticatedRedirectsAnonymous(t *testing.T) {
	assert.Equal(t, RedirectTo(LoginPath), Authenticated(stubPrincipal{}))
	assert.Equal(t, RedirectTo(LoginPath), Authenticated(nil))
	assert.True(t, Authenticated(stubPrincipal{signedIn: true}).Allowed())
}

func TestAuthorize(t *testing.T) {
	productsRead := stubPrincipal{signedIn: true, perms: []Permission{{ID: "1", Resource: "products", Action: "read"}}}
	suppliersRead := stubPrincipal{signedIn: true, perms: []Permission{{ID: "2", Resource: "suppliers", Action: "read"}}}

	t.Run("anonymous goes to login before permission check", func(t *testing.T) {
		d := Authorize(stubPrincipal{perms: productsRead.perms}, Need("products", "read"))
		assert.Equal(t, RedirectTo(LoginPath), d)
	})
	t.Run("missing permission goes to unauthorized", func(t *testing.T) {
		d := Authorize(productsRead, Need("products", "update"))
		assert.Equal(t, Redirect, d.Outcome)
		assert.Equal(t, UnauthorizedPath, d.Target)
	})
	t.Run("granted permission renders", func(t *testing.T) {
		d := Authorize(suppliersRead, Need("suppliers", "read"))
		assert.True(t, d.Allowed())
	})
}

func TestAuthorizeAny(t *testing.T) {
	p := stubPrincipal{signedIn: true, perms: []Permission{{ID: "1", Resource: "users", Action: "read"}}}

	assert.True(t, AuthorizeAny(p, Need("roles", "read"), Need("users", "read")).Allowed())
	assert.Equal(t, RedirectTo(UnauthorizedPath), AuthorizeAny(p, Need("roles", "read")))
	assert.Equal(t, RedirectTo(UnauthorizedPath), AuthorizeAny(p))
}

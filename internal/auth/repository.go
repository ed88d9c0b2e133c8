package auth

import (
	"context"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
)

// Repository defines the remote authentication calls.
type Repository interface {
	Login(ctx context.Context, id apiclient.Identity, payload LoginPayload) (Response, error)
	Signup(ctx context.Context, id apiclient.Identity, payload SignupPayload) (Response, error)
}

// APIRepository implements Repository against the inventory API.
type APIRepository struct {
	client *apiclient.Client
}

// NewRepository constructs an API-backed repository.
func NewRepository(client *apiclient.Client) *APIRepository {
	return &APIRepository{client: client}
}

// Login posts credentials.
func (r *APIRepository) Login(ctx context.Context, id apiclient.Identity, payload LoginPayload) (Response, error) {
	var out Response
	err := r.client.Post(ctx, id, "/auth/login", payload, &out)
	return out, err
}

// Signup registers a new account.
func (r *APIRepository) Signup(ctx context.Context, id apiclient.Identity, payload SignupPayload) (Response, error) {
	var out Response
	err := r.client.Post(ctx, id, "/auth/signup", payload, &out)
	return out, err
}

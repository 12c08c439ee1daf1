package domain

import "context"

// TokenStore is the durable home of the bearer token, the only piece of
// client state that survives a restart. The session store is its single
// writer. Implemented by tokenstore.MemoryStore, tokenstore.ProfileStore and
// tokenstore.SQLiteStore.
type TokenStore interface {
	// Load returns the stored token, or "" when there is none.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// AuthAPI is the subset of the REST collaborator the session store needs.
// Implemented by apiclient.AuthAPI.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (token string, err error)
	Me(ctx context.Context) (*UserProfile, error)
}

package catalog

import "context"

type Repository interface {
	// LoadAll returns every panel with its items populated.
	LoadAll(ctx context.Context) ([]*Panel, error)
}

// Package assets tracks custody of unique digital assets.
//
// Every asset has exactly one owner at a time. Ownership moves only via
// Transfer, which verifies current custody before reassigning it. The
// auction service uses transfers to escrow an asset for the duration of
// an auction and to hand it to the winner at settlement.
package assets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbd888/gavel/internal/idgen"
)

var (
	ErrAssetNotFound = errors.New("assets: asset not found")
	ErrAssetExists   = errors.New("assets: asset already registered")
	ErrUnauthorized  = errors.New("assets: not authorized for this transfer")
	ErrNotOwned      = errors.New("assets: asset not held by the from address")
)

// Asset represents a unique digital asset.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists asset custody records.
type Store interface {
	Create(ctx context.Context, asset *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	// TransferOwner reassigns custody only if the asset is currently held
	// by from. Returns ErrNotOwned when the precondition fails.
	TransferOwner(ctx context.Context, id, from, to string) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]*Asset, error)
}

// Registry implements asset custody operations.
type Registry struct {
	store Store
}

// NewRegistry creates a new asset registry.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// RegisterRequest contains the parameters for registering an asset.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Owner       string `json:"owner" binding:"required"`
}

// Register mints a new asset record owned by req.Owner.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*Asset, error) {
	now := time.Now()
	asset := &Asset{
		ID:          idgen.WithPrefix("ast_"),
		Name:        req.Name,
		Description: req.Description,
		Owner:       strings.ToLower(req.Owner),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// Get returns an asset by ID.
func (r *Registry) Get(ctx context.Context, id string) (*Asset, error) {
	return r.store.Get(ctx, id)
}

// Owner returns the address currently holding an asset.
func (r *Registry) Owner(ctx context.Context, id string) (string, error) {
	asset, err := r.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

// ListByOwner returns assets currently held by an address.
func (r *Registry) ListByOwner(ctx context.Context, owner string, limit int) ([]*Asset, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.store.ListByOwner(ctx, strings.ToLower(owner), limit)
}

// Transfer moves custody of an asset from one address to another.
// Fails with ErrUnauthorized on a missing party, ErrNotOwned when the
// asset is not currently held by from. The check-and-set is atomic in
// the store, so concurrent transfers cannot both succeed.
func (r *Registry) Transfer(ctx context.Context, from, to, assetID string) error {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == "" || to == "" {
		return ErrUnauthorized
	}
	if from == to {
		return nil // custody unchanged
	}
	return r.store.TransferOwner(ctx, assetID, from, to)
}

package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/roomservice/internal/storage"
	"github.com/dshills/roomservice/pkg/types"
)

// SampleItems is the starter menu written to an empty database
var SampleItems = []types.MenuItem{
	{ItemKey: "paneer_tikka", Name: "Paneer Tikka Masala", Price: 255, Category: "Main", Description: "Cottage cheese in rich gravy"},
	{ItemKey: "garlic_fried_rice", Name: "Garlic Fried Rice", Price: 180, Category: "Rice", Description: "Aromatic rice with garlic"},
	{ItemKey: "veg_biryani", Name: "Veg Biryani", Price: 220, Category: "Rice", Description: "Fragrant rice with vegetables"},
	{ItemKey: "butter_chicken", Name: "Butter Chicken", Price: 285, Category: "Main", Description: "Tender chicken in creamy tomato sauce"},
	{ItemKey: "dal_makhani", Name: "Dal Makhani", Price: 200, Category: "Main", Description: "Creamy black lentil curry"},
	{ItemKey: "naan", Name: "Naan", Price: 60, Category: "Bread", Description: "Traditional Indian flatbread"},
}

// Catalog serves versioned menus. Versions are append-only: Publish adds a
// new version and nothing ever rewrites an existing one.
type Catalog struct {
	store          storage.Storage
	defaultVersion string
	cache          *Cache
	logger         *slog.Logger
}

// NewCatalog creates a catalog over store. An empty defaultVersion falls
// back to types.DefaultMenuVersion.
func NewCatalog(store storage.Storage, defaultVersion string, logger *slog.Logger) *Catalog {
	if defaultVersion == "" {
		defaultVersion = types.DefaultMenuVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:          store,
		defaultVersion: defaultVersion,
		cache:          NewCache(DefaultCacheSize),
		logger:         logger,
	}
}

// DefaultVersion is the version used when a caller names none
func (c *Catalog) DefaultVersion() string {
	return c.defaultVersion
}

func (c *Catalog) version(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return c.defaultVersion
}

// ListItems returns the items of version ordered by category then name. An
// unknown version yields a NotFoundError.
func (c *Catalog) ListItems(ctx context.Context, version string) ([]*types.MenuItem, error) {
	version = c.version(version)
	if items, ok := c.cache.Get(version); ok {
		return items, nil
	}

	items, err := c.store.ListMenuItems(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu %s: %w", version, err)
	}
	if len(items) == 0 {
		return nil, types.NewNotFoundError("menu version", version)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})

	c.cache.Set(version, items)
	return items, nil
}

// Versions lists the published menu versions, oldest first
func (c *Catalog) Versions(ctx context.Context) ([]string, error) {
	return c.store.ListMenuVersions(ctx)
}

// SeedDefault writes SampleItems under the default version when no menu
// exists yet. It reports whether anything was written.
func (c *Catalog) SeedDefault(ctx context.Context) (bool, error) {
	n, err := c.store.CountMenuItems(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count menu items: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	items := make([]*types.MenuItem, len(SampleItems))
	for i := range SampleItems {
		it := SampleItems[i]
		items[i] = &it
	}
	if err := c.Publish(ctx, c.defaultVersion, items); err != nil {
		return false, err
	}
	c.logger.Info("seeded sample menu", "action", "menu_seeded", "version", c.defaultVersion, "items", len(items))
	return true, nil
}

// Publish stores items as a new menu version. Publishing to an existing
// version is rejected.
func (c *Catalog) Publish(ctx context.Context, version string, items []*types.MenuItem) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return types.NewValidationError("version", "is required")
	}
	if len(items) == 0 {
		return types.NewValidationError("items", "must contain at least one item")
	}

	seen := make(map[string]struct{}, len(items))
	rows := make([]*types.MenuItem, len(items))
	for i, it := range items {
		if it == nil {
			return types.NewValidationError(fmt.Sprintf("items[%d]", i), "is required")
		}
		row := *it
		row.ItemKey = strings.TrimSpace(row.ItemKey)
		row.Name = strings.TrimSpace(row.Name)
		if err := row.Validate(); err != nil {
			return err
		}
		if _, dup := seen[row.ItemKey]; dup {
			return types.NewValidationError("item_key", fmt.Sprintf("%s appears twice", row.ItemKey))
		}
		seen[row.ItemKey] = struct{}{}
		row.ID = uuid.NewString()
		row.Version = version
		rows[i] = &row
	}

	existing, err := c.store.ListMenuItems(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to check menu %s: %w", version, err)
	}
	if len(existing) > 0 {
		return types.NewValidationError("version", fmt.Sprintf("%s is already published", version))
	}

	if err := c.store.InsertMenuItems(ctx, rows); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return types.NewValidationError("version", fmt.Sprintf("%s is already published", version))
		}
		return fmt.Errorf("failed to publish menu %s: %w", version, err)
	}
	c.cache.Remove(version)
	c.logger.Info("menu published", "action", "menu_published", "version", version, "items", len(rows))
	return nil
}

// Resolve turns item requests into order lines priced from version. Each
// key must exist in that version; name and price are copied into the line.
func (c *Catalog) Resolve(ctx context.Context, version string, reqs []types.ItemRequest) ([]types.OrderLine, error) {
	version = c.version(version)
	items, err := c.ListItems(ctx, version)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return nil, types.NewValidationError("menu_version", fmt.Sprintf("unknown version %s", version))
		}
		return nil, err
	}
	byKey := make(map[string]*types.MenuItem, len(items))
	for _, it := range items {
		byKey[it.ItemKey] = it
	}

	lines := make([]types.OrderLine, 0, len(reqs))
	for i, r := range reqs {
		key := strings.TrimSpace(r.ItemKey)
		it, ok := byKey[key]
		if !ok {
			return nil, types.NewValidationError(fmt.Sprintf("items[%d].item_key", i),
				fmt.Sprintf("%q is not on menu %s", key, version))
		}
		lines = append(lines, types.OrderLine{
			ItemKey: it.ItemKey,
			Name:    it.Name,
			Qty:     r.Qty,
			Price:   it.Price,
		})
	}
	return lines, nil
}

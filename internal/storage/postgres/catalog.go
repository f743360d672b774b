package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfs-fashion/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, slug, category, description, images
		FROM products ORDER BY created_at, id`

	getProductSQL = `SELECT id, name, slug, category, description, images
		FROM products WHERE id = $1 OR slug = $1`

	listVariantsSQL = `SELECT id, product_id, size, color, price, stock
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, id`

	listTiersSQL = `SELECT product_id, min_quantity, discount_percent
		FROM bulk_pricing_tiers WHERE product_id = ANY($1) ORDER BY product_id, position`

	getVariantsSQL = `SELECT v.id, v.product_id, v.size, v.color, v.price, v.stock, p.name, p.images
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all products with their variants and tiers.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	if err := r.attach(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a product by id or slug.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	products := []catalog.Product{p}
	if err := r.attach(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetVariant returns a single variant joined with its product.
func (r *CatalogRepository) GetVariant(ctx context.Context, variantID string) (*catalog.VariantDetail, error) {
	variants, err := r.GetVariants(ctx, []string{variantID})
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, catalog.ErrVariantNotFound
	}
	return &variants[0], nil
}

// GetVariants returns the variants matching ids. Unknown ids are skipped.
func (r *CatalogRepository) GetVariants(ctx context.Context, ids []string) ([]catalog.VariantDetail, error) {
	rows, err := r.pool.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}
	variants, err := pgx.CollectRows(rows, scanVariantDetail)
	if err != nil {
		return nil, errors.Wrap(err, "scan variants")
	}
	if len(variants) == 0 {
		return variants, nil
	}

	productIDs := make([]string, 0, len(variants))
	for _, v := range variants {
		productIDs = append(productIDs, v.ProductID)
	}
	tiers, err := r.tiers(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for i := range variants {
		variants[i].BulkPricingTiers = tiers[variants[i].ProductID]
	}
	return variants, nil
}

func (r *CatalogRepository) attach(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	rows, err := r.pool.Query(ctx, listVariantsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list variants")
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return errors.Wrap(err, "scan variants")
	}
	byProduct := make(map[string][]catalog.Variant, len(products))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}

	tiers, err := r.tiers(ctx, ids)
	if err != nil {
		return err
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
		products[i].BulkPricingTiers = tiers[products[i].ID]
	}
	return nil
}

func (r *CatalogRepository) tiers(ctx context.Context, productIDs []string) (map[string][]catalog.Tier, error) {
	rows, err := r.pool.Query(ctx, listTiersSQL, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list tiers")
	}
	out := make(map[string][]catalog.Tier)
	var (
		productID string
		t         catalog.Tier
	)
	_, err = pgx.ForEachRow(rows, []any{&productID, &t.MinQuantity, &t.DiscountPercent}, func() error {
		out[productID] = append(out[productID], t)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan tiers")
	}
	return out, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.Description, &p.Images)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Price, &v.Stock)
	return v, err
}

func scanVariantDetail(row pgx.CollectableRow) (catalog.VariantDetail, error) {
	var (
		v      catalog.VariantDetail
		images []string
	)
	err := row.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Price, &v.Stock, &v.ProductName, &images)
	if len(images) > 0 {
		v.Image = images[0]
	}
	return v, err
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, slug, category, description, images)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			images = EXCLUDED.images`

	upsertVariantSQL = `INSERT INTO product_variants (id, product_id, size, color, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock`

	deleteTiersSQL = `DELETE FROM bulk_pricing_tiers WHERE product_id = $1`

	insertTierSQL = `INSERT INTO bulk_pricing_tiers (product_id, position, min_quantity, discount_percent)
		VALUES ($1, $2, $3, $4)`
)

// Upsert writes products with their variants in one transaction. A product's
// bulk pricing tiers are replaced by the given ones, keeping their order.
func (r *CatalogRepository) Upsert(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range products {
		images := p.Images
		if images == nil {
			images = []string{}
		}
		batch.Queue(upsertProductSQL, p.ID, p.Name, p.Slug, p.Category, p.Description, images)
		batch.Queue(deleteTiersSQL, p.ID)
		for i, t := range p.BulkPricingTiers {
			batch.Queue(insertTierSQL, p.ID, i, t.MinQuantity, t.DiscountPercent)
		}
		for _, v := range p.Variants {
			batch.Queue(upsertVariantSQL, v.ID, p.ID, v.Size, v.Color, v.Price, v.Stock)
		}
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}

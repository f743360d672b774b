package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/jfs-fashion/storefront/internal/domain/catalog"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
	"github.com/jfs-fashion/storefront/internal/storage/postgres"
)

type seedFile struct {
	Products      []productJSON   `json:"products"`
	ShippingZones []zoneJSON      `json:"shippingZones"`
	Promotions    []promotionJSON `json:"promotions"`
}

type tierJSON struct {
	MinQuantity     int             `json:"minQuantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type variantJSON struct {
	ID    string          `json:"id"`
	Size  string          `json:"size"`
	Color string          `json:"color"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type productJSON struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Slug             string        `json:"slug"`
	Category         string        `json:"category"`
	Description      string        `json:"description"`
	Images           []string      `json:"images"`
	BulkPricingTiers []tierJSON    `json:"bulkPricingTiers"`
	Variants         []variantJSON `json:"variants"`
}

type zoneJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	States []string        `json:"states"`
	Fee    decimal.Decimal `json:"fee"`
}

type promotionJSON struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	Value          decimal.Decimal `json:"value"`
	Description    string          `json:"description"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	MaxDiscount    decimal.Decimal `json:"maxDiscount"`
	ValidFrom      *time.Time      `json:"validFrom"`
	ValidUntil     *time.Time      `json:"validUntil"`
	MaxUses        int             `json:"maxUses"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to the seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	slog.Info("reading seed file", slog.String("path", seedPath))
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.Migrate(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewCatalogRepository(pool).Upsert(ctx, seed.products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	slog.Info("upserted products", slog.Int("count", len(seed.products)))

	if err := postgres.NewShippingRepository(pool).Upsert(ctx, seed.zones); err != nil {
		return errors.Wrap(err, "seed shipping zones")
	}
	slog.Info("upserted shipping zones", slog.Int("count", len(seed.zones)))

	if err := postgres.NewPromotionRepository(pool).Upsert(ctx, seed.promotions); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	slog.Info("upserted promotions", slog.Int("count", len(seed.promotions)))

	return nil
}

type seedData struct {
	products   []catalog.Product
	zones      []shipping.Zone
	promotions []promotion.Rule
}

// parseSeed decodes and validates the seed file.
func parseSeed(data []byte) (*seedData, error) {
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}

	out := &seedData{}
	for _, p := range f.Products {
		if p.ID == "" || p.Slug == "" {
			return nil, errors.Errorf("product %q: id and slug are required", p.Name)
		}
		product := catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Slug:        p.Slug,
			Category:    p.Category,
			Description: p.Description,
			Images:      p.Images,
		}
		for _, t := range p.BulkPricingTiers {
			if t.MinQuantity < 1 {
				return nil, errors.Errorf("product %s: tier minQuantity must be at least 1", p.ID)
			}
			product.BulkPricingTiers = append(product.BulkPricingTiers, catalog.Tier{
				MinQuantity:     t.MinQuantity,
				DiscountPercent: t.DiscountPercent,
			})
		}
		for _, v := range p.Variants {
			product.Variants = append(product.Variants, catalog.Variant{
				ID:        v.ID,
				ProductID: p.ID,
				Size:      v.Size,
				Color:     v.Color,
				Price:     v.Price,
				Stock:     v.Stock,
			})
		}
		out.products = append(out.products, product)
	}

	for _, z := range f.ShippingZones {
		out.zones = append(out.zones, shipping.Zone{ID: z.ID, Name: z.Name, States: z.States, Fee: z.Fee})
	}

	for _, p := range f.Promotions {
		dt := promotion.DiscountType(p.DiscountType)
		if dt != promotion.DiscountPercentage && dt != promotion.DiscountFixed {
			return nil, errors.Errorf("promotion %s: unknown discount type %q", p.Code, p.DiscountType)
		}
		out.promotions = append(out.promotions, promotion.Rule{
			Code:           p.Code,
			DiscountType:   dt,
			Value:          p.Value,
			Description:    p.Description,
			MinOrderAmount: p.MinOrderAmount,
			MaxDiscount:    p.MaxDiscount,
			ValidFrom:      p.ValidFrom,
			ValidUntil:     p.ValidUntil,
			MaxUses:        p.MaxUses,
		})
	}
	return out, nil
}

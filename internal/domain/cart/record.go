package cart

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// StorageKey is the key under which a cart record is persisted.
const StorageKey = "jfs-cart-storage"

// MarshalRecord encodes items as a persisted cart record:
//
//	{"items":[{"productId":..., "variantId":..., "price":12.5, "quantity":2, ...}]}
//
// Prices and discount percentages are written as JSON numbers in
// decimal.String form, so trailing zeros are dropped (4500.50 is written as
// 4500.5). The numeric value round-trips exactly.
func MarshalRecord(items []Item) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		encodeItem(&e, it)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func encodeItem(e *jx.Encoder, it Item) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(it.ProductID)
	e.FieldStart("variantId")
	e.Str(it.VariantID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("image")
	e.Str(it.Image)
	e.FieldStart("size")
	e.Str(it.Size)
	e.FieldStart("color")
	e.Str(it.Color)
	e.FieldStart("price")
	e.Num(jx.Num(it.Price.String()))
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	if len(it.BulkPricingTiers) > 0 {
		e.FieldStart("bulkPricingTiers")
		e.ArrStart()
		for _, t := range it.BulkPricingTiers {
			e.ObjStart()
			e.FieldStart("minQuantity")
			e.Int(t.MinQuantity)
			e.FieldStart("discountPercent")
			e.Num(jx.Num(t.DiscountPercent.String()))
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// UnmarshalRecord decodes a persisted cart record. Empty input, a JSON null,
// or a record without items yields an empty slice. Records wrapped in a
// {"state": {...}} envelope are also accepted.
func UnmarshalRecord(data []byte) ([]Item, error) {
	items := []Item{}
	if len(bytes.TrimSpace(data)) == 0 {
		return items, nil
	}
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Null {
		return items, nil
	}
	if err := decodeRecord(d, &items); err != nil {
		return nil, errors.Wrap(err, "decode cart record")
	}
	return items, nil
}

func decodeRecord(d *jx.Decoder, items *[]Item) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				*items = append(*items, it)
				return nil
			})
		case "state":
			return decodeRecord(d, items)
		default:
			return d.Skip()
		}
	})
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			it.ProductID, err = d.Str()
		case "variantId":
			it.VariantID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "image":
			it.Image, err = d.Str()
		case "size":
			it.Size, err = d.Str()
		case "color":
			it.Color, err = d.Str()
		case "price":
			it.Price, err = decodeDecimal(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "bulkPricingTiers":
			it.BulkPricingTiers, err = decodeTiers(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return it, err
}

func decodeTiers(d *jx.Decoder) ([]Tier, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var tiers []Tier
	err := d.Arr(func(d *jx.Decoder) error {
		var t Tier
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "minQuantity":
				t.MinQuantity, err = d.Int()
			case "discountPercent":
				t.DiscountPercent, err = decodeDecimal(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		tiers = append(tiers, t)
		return nil
	})
	return tiers, err
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

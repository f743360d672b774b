package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jfs-fashion/storefront/internal/domain/promotion"
)

const (
	minCodeLen    = 6
	maxCodeLen    = 16
	maxCampaigns  = bits.UintSize
	progressEvery = 1_000_000
)

// campaign is one manifest entry: a gzipped file of codes, one per line,
// that all share the same discount rule.
type campaign struct {
	File           string          `json:"file"`
	DiscountType   string          `json:"discountType"`
	Value          decimal.Decimal `json:"value"`
	Description    string          `json:"description"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	MaxDiscount    decimal.Decimal `json:"maxDiscount"`
	ValidFrom      *time.Time      `json:"validFrom"`
	ValidUntil     *time.Time      `json:"validUntil"`
	MaxUses        int             `json:"maxUses"`

	path string
}

func (c campaign) rule(code string) promotion.Rule {
	return promotion.Rule{
		Code:           code,
		DiscountType:   promotion.DiscountType(c.DiscountType),
		Value:          c.Value,
		Description:    c.Description,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		MaxUses:        c.MaxUses,
	}
}

type options struct {
	bloomCapacity uint
	bloomFPR      float64
	batchSize     int
}

type stats struct {
	written     int
	conflicting int
	rejected    int
}

type promotionWriter interface {
	Upsert(ctx context.Context, rules []promotion.Rule) error
}

func loadManifest(path, dataDir string) ([]campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	var campaigns []campaign
	if err := json.Unmarshal(data, &campaigns); err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	if len(campaigns) == 0 {
		return nil, errors.New("manifest lists no campaigns")
	}
	if len(campaigns) > maxCampaigns {
		return nil, errors.Errorf("at most %d campaigns per run", maxCampaigns)
	}
	for i := range campaigns {
		c := &campaigns[i]
		switch promotion.DiscountType(c.DiscountType) {
		case promotion.DiscountPercentage, promotion.DiscountFixed:
		default:
			return nil, errors.Errorf("campaign %s: unknown discount type %q", c.File, c.DiscountType)
		}
		c.path = filepath.Join(dataDir, c.File)
		if _, err := os.Stat(c.path); err != nil {
			return nil, errors.Wrapf(err, "check file %s", c.path)
		}
	}
	return campaigns, nil
}

// normalizeCode upper-cases a line and reports whether it is a well-formed
// code: 6 to 16 ASCII letters or digits.
func normalizeCode(line string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(line))
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return "", false
	}
	for _, c := range []byte(code) {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", false
		}
	}
	return code, true
}

// fileCodes holds the distinct codes of one campaign file. A true value
// marks a code some other file's bloom filter may also contain.
type fileCodes struct {
	codes    map[string]bool
	rejected int
}

// ingest publishes every code that belongs to exactly one campaign.
//
// Pass 1 builds a bloom filter per file. Pass 2 re-reads each file and flags
// codes another file's filter reports. Flagged codes are confirmed by
// merging per-file bitmasks: a bit is only set by a file that really holds
// the code, so a code with two or more bits is a true conflict and is
// skipped, while bloom false positives end up with a single bit.
func ingest(ctx context.Context, campaigns []campaign, w promotionWriter, opts options) (stats, error) {
	var st stats

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(campaigns)))
	filters := make([]*bloom.BloomFilter, len(campaigns))
	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range campaigns {
		g.Go(func() error {
			f := bloom.NewWithEstimates(opts.bloomCapacity, opts.bloomFPR)
			n, err := streamCodes(gCtx, c.path, func(code string) { f.AddString(code) })
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", c.File)
			}
			slog.Info("pass 1 complete", slog.String("file", c.File), slog.Int("codes", n))
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: collecting codes")
	results := make([]fileCodes, len(campaigns))
	g, gCtx = errgroup.WithContext(ctx)
	for i, c := range campaigns {
		g.Go(func() error {
			r := fileCodes{codes: make(map[string]bool)}
			n, err := streamLines(gCtx, c.path, func(line string) {
				code, ok := normalizeCode(line)
				if !ok {
					r.rejected++
					return
				}
				suspect := false
				for j, f := range filters {
					if j != i && f.TestString(code) {
						suspect = true
						break
					}
				}
				r.codes[code] = r.codes[code] || suspect
			})
			if err != nil {
				return errors.Wrapf(err, "collect codes from %s", c.File)
			}
			slog.Info("pass 2 complete",
				slog.String("file", c.File),
				slog.Int("lines", n),
				slog.Int("distinct", len(r.codes)),
			)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, errors.Wrap(err, "collect codes")
	}

	owners := make(map[string]uint)
	for i, r := range results {
		st.rejected += r.rejected
		for code, suspect := range r.codes {
			if suspect {
				owners[code] |= uint(1) << uint(i)
			}
		}
	}
	for _, mask := range owners {
		if bits.OnesCount(mask) >= 2 {
			st.conflicting++
		}
	}

	for i, c := range campaigns {
		batch := make([]promotion.Rule, 0, opts.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := w.Upsert(ctx, batch); err != nil {
				return errors.Wrapf(err, "upsert %s", c.File)
			}
			st.written += len(batch)
			batch = batch[:0]
			return nil
		}
		for code, suspect := range results[i].codes {
			if suspect && bits.OnesCount(owners[code]) >= 2 {
				continue
			}
			batch = append(batch, c.rule(code))
			if len(batch) >= opts.batchSize {
				if err := flush(); err != nil {
					return st, err
				}
			}
		}
		if err := flush(); err != nil {
			return st, err
		}
		slog.Info("campaign written", slog.String("file", c.File), slog.Int("total_written", st.written))
	}
	return st, nil
}

// streamCodes calls fn with every well-formed code in a gzipped file.
func streamCodes(ctx context.Context, path string, fn func(code string)) (int, error) {
	n := 0
	_, err := streamLines(ctx, path, func(line string) {
		if code, ok := normalizeCode(line); ok {
			n++
			fn(code)
		}
	})
	return n, err
}

// streamLines opens a gzip-compressed file and calls fn for each line.
func streamLines(ctx context.Context, path string, fn func(line string)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	n := 0
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		n++
		if n%progressEvery == 0 {
			slog.Info("read progress", slog.String("file", filepath.Base(path)), slog.Int("lines", n))
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrapf(err, "scan %s", path)
	}
	return n, nil
}

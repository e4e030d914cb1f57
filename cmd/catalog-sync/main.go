package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/joho/godotenv"
	pgzip "github.com/klauspost/pgzip"
	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/abhirupbose899-web/orephia/internal/domain/product"
	"github.com/abhirupbose899-web/orephia/internal/repository"
)

const (
	bloomFPR      = 0.001
	minBloomSize  = 10_000
	progressEvery = 1_000
	maxLineSize   = 4 << 20
)

// stats is updated concurrently by shard workers.
type stats struct {
	lines   atomic.Int64
	synced  atomic.Int64
	created atomic.Int64
	skipped atomic.Int64
}

type syncer struct {
	store  product.SyncRepository
	known  *bloom.BloomFilter
	policy *bluemonday.Policy
	newID  func() string
	stats  stats
}

func main() {
	_ = godotenv.Load()

	var (
		dataDir     string
		databaseURL string
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz catalog exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or OREPHIA_DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "number of shards processed concurrently")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("OREPHIA_DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or OREPHIA_DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, workers); err != nil {
		slog.Error("catalog sync failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog sync completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list shards")
	}
	if len(files) == 0 {
		slog.Info("no catalog shards found", slog.String("dir", dataDir))
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	s, err := newSyncer(ctx, repository.NewProductRepository(pool))
	if err != nil {
		return err
	}

	slog.Info("syncing shards", slog.Int("files", len(files)), slog.Int("workers", workers))

	if err := s.syncFiles(ctx, files, workers); err != nil {
		return err
	}

	slog.Info("sync totals",
		slog.Int64("lines", s.stats.lines.Load()),
		slog.Int64("synced", s.stats.synced.Load()),
		slog.Int64("new", s.stats.created.Load()),
		slog.Int64("skipped", s.stats.skipped.Load()),
	)
	return nil
}

// newSyncer loads the external ids already in the catalog into a bloom
// filter. A miss means the product is definitely new.
func newSyncer(ctx context.Context, store product.SyncRepository) (*syncer, error) {
	ids, err := store.ListExternalIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load external ids")
	}

	known := bloom.NewWithEstimates(uint(max(len(ids)*2, minBloomSize)), bloomFPR)
	for _, id := range ids {
		known.AddString(id)
	}

	slog.Info("loaded known products", slog.Int("count", len(ids)))

	return &syncer{
		store:  store,
		known:  known,
		policy: bluemonday.StrictPolicy(),
		newID:  func() string { return strings.ToLower(ulid.Make().String()) },
	}, nil
}

func (s *syncer) syncFiles(ctx context.Context, files []string, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, f := range files {
		g.Go(func() error {
			return s.syncFile(ctx, i, f)
		})
	}
	return g.Wait()
}

func (s *syncer) syncFile(ctx context.Context, idx int, path string) error {
	var count int64

	if err := streamGzFile(ctx, path, func(line []byte) error {
		if len(strings.TrimSpace(string(line))) == 0 {
			return nil
		}
		count++
		s.stats.lines.Add(1)

		p, err := s.parseLine(line)
		if err != nil {
			s.stats.skipped.Add(1)
			slog.Warn("skipping malformed product",
				slog.String("file", filepath.Base(path)),
				slog.Int64("line", count),
				slog.String("error", err.Error()),
			)
			return nil
		}

		if !s.known.TestString(p.ExternalID) {
			s.stats.created.Add(1)
		}
		if err := s.store.UpsertByExternalID(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert external product %s", p.ExternalID)
		}
		s.stats.synced.Add(1)

		if count%progressEvery == 0 {
			slog.Info("sync progress",
				slog.Int("file", idx+1),
				slog.Int64("products", count),
			)
		}
		return nil
	}); err != nil {
		return errors.Wrapf(err, "sync file %d", idx+1)
	}

	slog.Info("shard complete",
		slog.Int("file", idx+1),
		slog.String("path", path),
		slog.Int64("products", count),
	)
	return nil
}

// parseLine converts one exported product into a catalog product. Price is
// the lowest variant price and stock the sum of variant inventory.
func (s *syncer) parseLine(line []byte) (product.Product, error) {
	var (
		p     product.Product
		price decimal.NullDecimal
	)
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ExternalID, err = decodeID(d)
		case "title":
			p.Title, err = d.Str()
		case "body_html":
			var raw string
			if raw, err = d.Str(); err == nil {
				p.Description = strings.TrimSpace(s.policy.Sanitize(raw))
			}
		case "product_type":
			var v string
			if v, err = d.Str(); err == nil {
				p.Category = strings.ToLower(strings.TrimSpace(v))
			}
		case "tags":
			var v string
			if v, err = d.Str(); err == nil {
				p.Tags = splitTags(v)
			}
		case "variants":
			err = d.Arr(func(d *jx.Decoder) error {
				return decodeVariant(d, &p, &price)
			})
		case "image":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "src" {
					return d.Skip()
				}
				v, err := d.Str()
				p.ImageURL = v
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode")
	}

	switch {
	case p.ExternalID == "":
		return product.Product{}, errors.New("missing id")
	case strings.TrimSpace(p.Title) == "":
		return product.Product{}, errors.New("missing title")
	case !price.Valid:
		return product.Product{}, errors.New("no priced variants")
	}
	p.ID = s.newID()
	p.Price = price.Decimal
	return p, nil
}

// decodeID accepts numeric and string ids.
func decodeID(d *jx.Decoder) (string, error) {
	if d.Next() == jx.String {
		return d.Str()
	}
	n, err := d.Num()
	if err != nil {
		return "", err
	}
	if !n.IsInt() {
		return "", errors.Errorf("non-integer id %s", n)
	}
	v, err := n.Int64()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

func decodeVariant(d *jx.Decoder, p *product.Product, lowest *decimal.NullDecimal) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "price":
			raw, err := d.Str()
			if err != nil {
				return err
			}
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrapf(err, "variant price %q", raw)
			}
			if v.IsNegative() {
				return errors.Errorf("negative variant price %s", raw)
			}
			if !lowest.Valid || v.LessThan(lowest.Decimal) {
				*lowest = decimal.NewNullDecimal(v)
			}
			return nil
		case "inventory_quantity":
			n, err := d.Int()
			if err != nil {
				return err
			}
			p.Stock += max(n, 0)
			return nil
		case "option1":
			return appendOption(d, &p.Sizes)
		case "option2":
			return appendOption(d, &p.Colors)
		default:
			return d.Skip()
		}
	})
}

func appendOption(d *jx.Decoder, dst *[]string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	v = strings.TrimSpace(v)
	if v != "" && !slices.Contains(*dst, v) {
		*dst = append(*dst, v)
	}
	return nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

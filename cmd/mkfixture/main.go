// mkfixture converts a provider-specific CSV file into a small Parquet
// fixture. Rows are picked so every provider appears once before any
// provider gets a second record.
// Usage: go run ./cmd/mkfixture --in testdata/ipsf.csv --kind ipsf --out testdata/ipsf-small.parquet --rows 200
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	goparquet "github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/parquetread"
	"github.com/gyeh/myelin/internal/refdata"
)

func main() {
	in := flag.String("in", "testdata/ipsf.csv", "input provider CSV")
	kind := flag.String("kind", "ipsf", "provider file kind: ipsf or opsf")
	out := flag.String("out", "testdata/ipsf-small.parquet", "output parquet")
	maxRows := flag.Int("rows", 200, "max rows to output")
	checkOnly := flag.Bool("check", false, "only print stats of --out, don't write")
	flag.Parse()

	k, err := model.ParseRefKind(*kind)
	if err != nil {
		fail("kind", err)
	}
	v, ok := k.ProviderVariant()
	if !ok {
		fail("kind", fmt.Errorf("%s is not a provider file", k))
	}

	if *checkOnly {
		var (
			n         int64
			providers int
		)
		if v == model.Inpatient {
			n, providers, err = check[model.InpatientProvider](*out)
		} else {
			n, providers, err = check[model.OutpatientProvider](*out)
		}
		if err != nil {
			fail("check", err)
		}
		fmt.Printf("Total: %d rows, %d providers\n", n, providers)
		return
	}

	ctx := context.Background()
	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	cal, err := icd.FiscalYearCalendar(2016, 2027)
	if err != nil {
		fail("calendar", err)
	}
	sink := ingest.NewMemorySink(cal, refdata.NewHolder(refdata.Empty(cal)))
	opts := ingest.Options{MaxAttempts: 1, Fetcher: ingest.NewFetcher(log, ingest.ObjectStore{}, 0)}

	pf, err := ingest.Preflight(ctx, log, sink, opts.Fetcher, ingest.Task{Kind: k, Source: *in}, opts)
	if err != nil {
		fail("preflight", err)
	}
	batch, res, err := ingest.Stage(ctx, log, pf)
	if err != nil {
		fail("parse", err)
	}
	fmt.Printf("Scanned %d rows (%d rejected)\n", res.RowsRead, res.RowsRejected)

	selected := pick(batch.Providers, *maxRows)
	if v == model.Inpatient {
		err = write[model.InpatientProvider](*out, selected)
	} else {
		err = write[model.OutpatientProvider](*out, selected)
	}
	if err != nil {
		fail("write", err)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(selected), *out)
}

// pick takes one record per provider in file order, then fills the
// remaining budget with later records of the same providers.
func pick(recs []model.ProviderRecord, limit int) []model.ProviderRecord {
	seen := make(map[string]bool)
	var first, rest []model.ProviderRecord
	for _, r := range recs {
		key := model.RecordKey(r)
		if !seen[key] {
			seen[key] = true
			first = append(first, r)
			continue
		}
		rest = append(rest, r)
	}
	selected := append(first, rest...)
	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}

func write[T any](path string, recs []model.ProviderRecord) error {
	rows := make([]T, 0, len(recs))
	for _, r := range recs {
		p, ok := any(model.CloneRecord(r)).(*T)
		if !ok {
			var want T
			return fmt.Errorf("record %T is not %T", r, want)
		}
		rows = append(rows, *p)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := goparquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}

// check counts rows and distinct providers in a fixture.
func check[T any](path string) (rows int64, providers int, err error) {
	r, err := parquetread.Open[T](path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	seen := make(map[string]bool)
	rows, err = r.Each(func(_ int64, row *T) error {
		if rec, ok := any(row).(model.ProviderRecord); ok {
			seen[model.RecordKey(rec)] = true
		}
		return nil
	})
	return rows, len(seen), err
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

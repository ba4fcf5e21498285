package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
	"github.com/gyeh/myelin/internal/parquetread"
)

type rowFunc func(row int64, r model.ProviderRecord, err error)

// readProviders streams provider records out of a CSV or Parquet file.
// Decode failures are reported per row through fn; only I/O and schema
// problems fail the read.
func readProviders(ctx context.Context, p, format string, v model.Variant, fn rowFunc) error {
	switch format {
	case "csv":
		return readProviderCSV(ctx, p, v, fn)
	case "parquet":
		switch v {
		case model.Inpatient:
			return readProviderParquet[model.InpatientProvider](ctx, p, v, fn)
		case model.Outpatient:
			return readProviderParquet[model.OutpatientProvider](ctx, p, v, fn)
		}
	}
	return fmt.Errorf("cannot read %s records from %s", v, format)
}

// readProviderCSV reads the CMS positional layout: a header row, then one
// column per attribute in schema order.
func readProviderCSV(ctx context.Context, p string, v model.Variant, fn rowFunc) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	if _, err := cr.Read(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	names := model.AttributeNames(v)
	for row := int64(1); ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			fn(row, nil, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", row, err)
		}
		if len(rec) > len(names) {
			fn(row, nil, fmt.Errorf("%d columns, %s has %d", len(rec), v, len(names)))
			continue
		}
		r, err := model.DecodeRecord(v, normalize.Values(names, rec))
		fn(row, r, err)
	}
}

type providerRow interface {
	model.InpatientProvider | model.OutpatientProvider
}

func readProviderParquet[T providerRow](ctx context.Context, p string, v model.Variant, fn rowFunc) error {
	r, err := parquetread.Open[T](p)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := parquetread.ValidateSchema(r.Schema(), v); err != nil {
		return err
	}
	_, err = r.Each(func(row int64, rec *T) error {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c := *rec
		fn(row, any(&c).(model.ProviderRecord), nil)
		return nil
	})
	return err
}

// readConversionTable parses a CMS conversion table, either plain text or
// the distributed zip archive, where the first .txt entry is the table.
func readConversionTable(p, format string, kind model.RefKind) ([]model.ConversionRow, error) {
	parse := icd.ParseCMTable
	if kind == model.KindICD10PCS {
		parse = icd.ParsePCSTable
	}

	if format == "zip" {
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		for _, e := range zr.File {
			if e.FileInfo().IsDir() || !strings.EqualFold(path.Ext(e.Name), ".txt") {
				continue
			}
			rc, err := e.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", e.Name, err)
			}
			defer rc.Close()
			return parse(rc)
		}
		return nil, fmt.Errorf("archive has no .txt entry")
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func readCrosswalk(p string) ([]model.EquivalenceRow, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return icd.ParseCrosswalk(f)
}

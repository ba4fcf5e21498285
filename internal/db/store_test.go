package db_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/db"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/refdata"
)

const (
	testPort     = 15433
	testDB       = "myelintest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var testDSN string

var _ ingest.Sink = (*db.Store)(nil)
var _ ingest.Discarder = (*db.Store)(nil)

func TestMain(m *testing.M) {
	if os.Getenv("MYELIN_PG_TESTS") != "1" {
		fmt.Fprintln(os.Stderr, "SKIP: set MYELIN_PG_TESTS=1 to run Postgres tests")
		os.Exit(m.Run())
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)
	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}
	os.Exit(code)
}

// setupStore resets the schema and returns a store over a fresh pool.
func setupStore(t *testing.T) (*db.Store, *pgxpool.Pool, *icd.Calendar) {
	t.Helper()
	if testDSN == "" {
		t.Skip("MYELIN_PG_TESTS not set")
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, testDSN, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, stmt := range []string{"DROP SCHEMA IF EXISTS ref CASCADE", "DROP TABLE IF EXISTS public.myelin_migrations"} {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.ApplyMigrations(ctx, pool, zerolog.Nop()))

	cal, err := icd.FiscalYearCalendar(2023, 2026)
	require.NoError(t, err)
	return db.NewStore(pool, cal, zerolog.Nop()), pool, cal
}

func providerBatch(sha string, bedSize int, extra ...model.ProviderRecord) *model.RefBatch {
	recs := []model.ProviderRecord{
		&model.InpatientProvider{ProviderCCN: "012525", EffectiveDate: 20240101, BedSize: bedSize, SpecialWageIndex: 0.95},
		&model.InpatientProvider{ProviderCCN: "012525", EffectiveDate: 20241001, BedSize: 200},
	}
	return &model.RefBatch{
		File:      model.RefFile{Kind: model.KindIPSF, Source: sha + ".csv", SHA256: sha, Size: 10},
		BatchID:   uuid.New(),
		Providers: append(recs, extra...),
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	_, pool, _ := setupStore(t)
	require.NoError(t, db.ApplyMigrations(context.Background(), pool, zerolog.Nop()))

	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM public.myelin_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStoreApplyMergesByHash(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	counts, err := store.Apply(ctx, providerBatch("a", 120))
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCounts{Added: 2}, counts)

	applied, err := store.AlreadyApplied(ctx, "a")
	require.NoError(t, err)
	assert.True(t, applied)

	counts, err = store.Apply(ctx, providerBatch("b", 150,
		&model.OutpatientProvider{ProviderCCN: "330101", EffectiveDate: 20240101}))
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCounts{Added: 1, Changed: 1, Same: 1}, counts)
}

func TestStoreDiscardStaging(t *testing.T) {
	store, pool, _ := setupStore(t)
	ctx := context.Background()

	batch := providerBatch("a", 120)
	_, err := store.Apply(ctx, batch)
	require.NoError(t, err)

	n, err := store.Discard(ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var left int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM ref.stage_provider_records").Scan(&left))
	assert.Zero(t, left)
}

func TestStoreRejectsUnplaceableConversion(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, &model.RefBatch{
		File:    model.RefFile{Kind: model.KindICD10CM, Source: "cm.txt", SHA256: "cm"},
		BatchID: uuid.New(),
		Conversions: []model.ConversionRow{{
			System: model.DiagnosisCodes, CurrentCode: "D6109", PreviousCode: "D6101",
			EffectiveDate: time.Date(2010, 10, 1, 0, 0, 0, 0, time.UTC),
		}},
	})
	require.Error(t, err)

	applied, err := store.AlreadyApplied(ctx, "cm")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestStoreLoadSnapshot(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, providerBatch("a", 120))
	require.NoError(t, err)
	_, err = store.Apply(ctx, &model.RefBatch{
		File:    model.RefFile{Kind: model.KindICD10CM, Source: "cm.txt", SHA256: "cm"},
		BatchID: uuid.New(),
		Conversions: []model.ConversionRow{{
			System: model.DiagnosisCodes, CurrentCode: "D6109", PreviousCode: "D6101",
			EffectiveDate: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		}},
		Equivalences: []model.EquivalenceRow{{
			System: model.DiagnosisCodes, SourceVersion: "2025", SourceCode: "I214",
			TargetVersion: "2026", TargetCode: "I2140", Default: true,
		}},
	})
	require.NoError(t, err)

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Records(model.Inpatient))

	cands, ok := snap.Mapper().Candidates(model.DiagnosisCodes, "2024", "2025", "D6101")
	require.True(t, ok)
	assert.Equal(t, "D6109", cands[0].Code)
	cands, ok = snap.Mapper().Candidates(model.DiagnosisCodes, "2025", "2026", "I214")
	require.True(t, ok)
	assert.True(t, cands[0].Default)

	res := refdata.NewResolver(refdata.NewHolder(snap))
	rec, err := res.Resolve(refdata.NewIdentifier("012525", ""), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), model.Inpatient, model.Override{})
	require.NoError(t, err)
	assert.Equal(t, 120, rec.(*model.InpatientProvider).BedSize)
}

func TestBuildIntoStore(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	path := t.TempDir() + "/crosswalk.csv"
	require.NoError(t, os.WriteFile(path, []byte(
		"code_type,source_version,source_code,target_version,target_code,is_default\n"+
			"icd10cm,2025,I21.4,2026,I21.40,true\n"), 0o644))
	tasks := []ingest.Task{{Kind: model.KindCrosswalk, Source: path}}

	summary, err := ingest.Run(ctx, zerolog.Nop(), tasks, store, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesLoaded)

	summary, err = ingest.Run(ctx, zerolog.Nop(), tasks, store, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesSkipped)
}

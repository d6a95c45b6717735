//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const personDataSchema = `
	CREATE TABLE IF NOT EXISTS person_data (
		donn_numero   TEXT PRIMARY KEY,
		date_of_birth TEXT,
		ethnicity     TEXT,
		sex           TEXT,
		hla_a_1       TEXT,
		hla_a_2       TEXT,
		hla_b_1       TEXT,
		hla_b_2       TEXT,
		hla_c_1       TEXT,
		hla_c_2       TEXT,
		hla_drb1_1    TEXT,
		hla_drb1_2    TEXT,
		hla_dqb1_1    TEXT,
		hla_dqb1_2    TEXT,
		wmda_id       TEXT,
		search_id     TEXT
	)
`

// SetupTestDB starts a disposable PostgreSQL container with the person_data
// table and returns a connection to it. The container is terminated when
// the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("donors_test"),
		tcpostgres.WithUsername("registry"),
		tcpostgres.WithPassword("registry"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Warning: Failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := db.ExecContext(ctx, personDataSchema); err != nil {
		t.Fatalf("Failed to create person_data: %v", err)
	}

	return db
}

// InsertDonor inserts a donor with the given HLA typing (A..DQB1, two
// alleles each). An empty wmdaID is stored as NULL.
func InsertDonor(t *testing.T, db *sql.DB, donorID, wmdaID string, hla ...string) {
	t.Helper()

	values := make([]any, 10)
	for i := range values {
		if i < len(hla) {
			values[i] = hla[i]
		}
	}

	var wmda any
	if wmdaID != "" {
		wmda = wmdaID
	}

	_, err := db.Exec(`
		INSERT INTO person_data
		(donn_numero, date_of_birth, ethnicity, sex,
		 hla_a_1, hla_a_2, hla_b_1, hla_b_2, hla_c_1, hla_c_2,
		 hla_drb1_1, hla_drb1_2, hla_dqb1_1, hla_dqb1_2, wmda_id)
		VALUES ($1, '1980-01-01', 'UNK', 'F', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, append(append([]any{donorID}, values...), wmda)...)
	if err != nil {
		t.Fatalf("Failed to insert donor %s: %v", donorID, err)
	}
}

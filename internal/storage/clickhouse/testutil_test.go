package clickhouse

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "clickhouse/clickhouse-server:24.1-alpine"

// setupTestDB starts a ClickHouse container, creates the ledger schema from
// the migration files and returns a connection to the "ledger" database.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":                        "ledger",
				"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
			},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")
	terminate := func() { _ = container.Terminate(context.Background()) }

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		terminate()
		require.NoError(t, err)
	}

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://default@%s/ledger", endpoint))
	if err != nil {
		terminate()
		require.NoError(t, err)
	}
	if err := applySchema(ctx, conn); err != nil {
		_ = conn.Close()
		terminate()
		require.NoError(t, err, "apply ledger schema")
	}

	return conn, func() {
		_ = conn.Close()
		terminate()
	}
}

// applySchema executes the ClickHouse migration files from disk, one
// statement per Exec.
func applySchema(ctx context.Context, conn *Conn) error {
	dir := os.DirFS("../migrations/clickhouse")
	files, err := fs.Glob(dir, "*.sql")
	if err != nil {
		return err
	}
	for _, name := range files {
		data, err := fs.ReadFile(dir, name)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if !hasSQL(stmt) {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func hasSQL(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

//go:build integration

package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	testDBName     = "vpnbot"
	testDBUser     = "vpnbot"
	testDBPassword = "vpnbot"
	testDBPort     = "55432"
)

var testPool *pgxpool.Pool

// schemaPath walks up to the directory holding go.mod.
func schemaPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "deploy", "postgres", "init.sql"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above test directory")
		}
		dir = parent
	}
}

func startContainer() (string, error) {
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"-p", testDBPort+":5432",
		"-e", "POSTGRES_DB="+testDBName,
		"-e", "POSTGRES_USER="+testDBUser,
		"-e", "POSTGRES_PASSWORD="+testDBPassword,
		"postgres:16-alpine",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.String())
	if len(id) > 12 {
		id = id[:12]
	}
	return id, nil
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	containerID, err := startContainer()
	if err != nil {
		log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
	}
	stop := func() {
		if err := exec.Command("docker", "stop", containerID).Run(); err != nil {
			log.Printf("could not stop postgres container %s: %v", containerID, err)
		}
	}

	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", testDBUser, testDBPassword, testDBPort, testDBName)
	for i := 0; i < 20; i++ {
		testPool, err = Connect(ctx, dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		stop()
		log.Fatalf("postgres not ready: %v", err)
	}

	path, err := schemaPath()
	if err != nil {
		stop()
		log.Fatalf("locate schema: %v", err)
	}
	schema, err := os.ReadFile(path)
	if err != nil {
		stop()
		log.Fatalf("read %s: %v", path, err)
	}
	if _, err := testPool.Exec(ctx, string(schema)); err != nil {
		stop()
		log.Fatalf("apply schema: %v", err)
	}

	code := m.Run()

	testPool.Close()
	stop()
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE trial_ledger`); err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

//go:build !integration

package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func TestTrialLedger(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("should report unknown users as unused", func(t *testing.T) {
		l, err := NewTrialLedger(filepath.Join(t.TempDir(), "data", "users.json"), &logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		used, err := l.HasUsedTrial(ctx, 1)
		if err != nil || used {
			t.Errorf("expected unused, got %v (%v)", used, err)
		}
	})

	t.Run("should persist in the documented layout", func(t *testing.T) {
		// --- Arrange ---
		path := filepath.Join(t.TempDir(), "users.json")
		l, _ := NewTrialLedger(path, &logger)
		at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		// --- Act ---
		err := l.MarkTrialUsed(ctx, 555, model.NewTrialLedgerEntry(555, "alice", at))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		b, _ := os.ReadFile(path)
		for _, want := range []string{`"users"`, `"555"`, `"username": "alice"`, `"usedTrial": true`, `"trialActivatedAt"`} {
			if !strings.Contains(string(b), want) {
				t.Errorf("expected file to contain %s, got %s", want, b)
			}
		}

		reopened, _ := NewTrialLedger(path, &logger)
		used, _ := reopened.HasUsedTrial(ctx, 555)
		if !used {
			t.Error("expected trial flag to survive a restart")
		}
	})

	t.Run("should keep the first activation on repeated marks", func(t *testing.T) {
		l, _ := NewTrialLedger(filepath.Join(t.TempDir(), "users.json"), &logger)
		first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		_ = l.MarkTrialUsed(ctx, 7, model.NewTrialLedgerEntry(7, "bob", first))
		_ = l.MarkTrialUsed(ctx, 7, model.NewTrialLedgerEntry(7, "bob", first.Add(time.Hour)))

		e, err := l.GetEntry(ctx, 7)
		if err != nil || e == nil {
			t.Fatalf("expected entry, got %v (%v)", e, err)
		}
		if !e.TrialActivatedAt.Equal(first) {
			t.Errorf("expected %v, got %v", first, e.TrialActivatedAt)
		}
	})

	t.Run("should not lose entries under concurrent writers", func(t *testing.T) {
		l, _ := NewTrialLedger(filepath.Join(t.TempDir(), "users.json"), &logger)
		var wg sync.WaitGroup
		for i := int64(1); i <= 20; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_ = l.MarkTrialUsed(ctx, id, model.NewTrialLedgerEntry(id, "", time.Now()))
			}(i)
		}
		wg.Wait()
		for i := int64(1); i <= 20; i++ {
			if used, _ := l.HasUsedTrial(ctx, i); !used {
				t.Errorf("expected user %d to be recorded", i)
			}
		}
	})

	t.Run("should refuse a corrupt ledger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.json")
		_ = os.WriteFile(path, []byte("{not json"), 0o644)
		l, _ := NewTrialLedger(path, &logger)
		if _, err := l.HasUsedTrial(ctx, 1); err == nil {
			t.Error("expected decode error, got nil")
		}
	})
}

func TestMediaStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "media_ids.json")

	s, err := NewMediaStore(ctx, path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := len(s.Missing()); got != len(repository.RequiredMediaKeys) {
		t.Errorf("expected all keys missing, got %d", got)
	}

	if err := s.Merge(ctx, map[string]string{repository.MediaTariffs: "file-1", repository.MediaRules: ""}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id, ok := s.Get(repository.MediaTariffs); !ok || id != "file-1" {
		t.Errorf("expected file-1, got %q", id)
	}
	if _, ok := s.Get(repository.MediaRules); ok {
		t.Error("expected empty ids to be ignored")
	}

	reopened, _ := NewMediaStore(ctx, path)
	if id, _ := reopened.Get(repository.MediaTariffs); id != "file-1" {
		t.Errorf("expected persisted id, got %q", id)
	}
	if len(reopened.All()) != 1 {
		t.Errorf("expected one stored id, got %v", reopened.All())
	}
}

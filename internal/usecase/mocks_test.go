// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/i18n"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestTranslator(t *testing.T) Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	return tr
}

// --- Telegram ---

type MockBot struct {
	mu       sync.Mutex
	Messages []adapter.SendMessageParams
	Photos   []adapter.SendPhotoParams
	Docs     []adapter.SendDocumentParams
	Edits    []adapter.EditCaptionParams

	SendMessageErr error
}

func (m *MockBot) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendMessageErr != nil {
		return m.SendMessageErr
	}
	m.Messages = append(m.Messages, p)
	return nil
}

func (m *MockBot) SendPhoto(ctx context.Context, p adapter.SendPhotoParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Photos = append(m.Photos, p)
	return nil
}

func (m *MockBot) SendDocument(ctx context.Context, p adapter.SendDocumentParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Docs = append(m.Docs, p)
	return nil
}

func (m *MockBot) EditCaption(ctx context.Context, p adapter.EditCaptionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, p)
	return nil
}

// MessagesTo returns the texts sent to chatID.
func (m *MockBot) MessagesTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.Messages {
		if msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

// --- Panel ---

type MockProvisioner struct {
	mu      sync.Mutex
	Created []model.CreateUserRequest

	GetInboundUUIDFunc func(ctx context.Context) (string, error)
	CreateUserFunc     func(ctx context.Context, req model.CreateUserRequest) (*model.ProvisionedAccount, error)
	GetAllUsersFunc    func(ctx context.Context) (*model.UserPage, error)
}

func (m *MockProvisioner) GetInboundUUID(ctx context.Context) (string, error) {
	if m.GetInboundUUIDFunc != nil {
		return m.GetInboundUUIDFunc(ctx)
	}
	return "inbound-1", nil
}

func (m *MockProvisioner) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.ProvisionedAccount, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	m.mu.Unlock()
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, req)
	}
	return &model.ProvisionedAccount{
		UUID:            "abcd1234-0000-4000-8000-000000000000",
		Username:        req.Username,
		SubscriptionURL: "https://sub.example.com/abcd1234/singbox",
	}, nil
}

func (m *MockProvisioner) GetAllUsers(ctx context.Context) (*model.UserPage, error) {
	if m.GetAllUsersFunc != nil {
		return m.GetAllUsersFunc(ctx)
	}
	return &model.UserPage{}, nil
}

func (m *MockProvisioner) GetUsersByTelegramID(ctx context.Context, telegramID int64) ([]model.PanelUser, error) {
	return nil, nil
}

func (m *MockProvisioner) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// --- Repositories ---

type memSessions struct {
	mu    sync.Mutex
	store map[int64]model.Session
}

func newMemSessions() *memSessions { return &memSessions{store: map[int64]model.Session{}} }

func (m *memSessions) SetSession(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ChatID] = *s
	return nil
}

func (m *memSessions) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) ClearSession(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, chatID)
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	entries map[int64]model.TrialLedgerEntry
	MarkErr error
}

func newMemLedger() *memLedger { return &memLedger{entries: map[int64]model.TrialLedgerEntry{}} }

func (m *memLedger) HasUsedTrial(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return ok && e.UsedTrial, nil
}

func (m *memLedger) MarkTrialUsed(ctx context.Context, id int64, entry model.TrialLedgerEntry) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		m.entries[id] = entry
	}
	return nil
}

func (m *memLedger) GetEntry(ctx context.Context, id int64) (*model.TrialLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	seq   int
	Calls []string
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (m *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, key)
	if _, ok := m.held[key]; ok {
		return "", domain.ErrClaimHeld
	}
	m.seq++
	token := "tok-" + strconv.Itoa(m.seq)
	m.held[key] = token
	return token, nil
}

func (m *memLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *memLocker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

type memMedia struct {
	ids map[string]string
}

func (m *memMedia) Get(key string) (string, bool) {
	id, ok := m.ids[key]
	return id, ok
}

func (m *memMedia) All() map[string]string { return m.ids }

func (m *memMedia) Merge(ctx context.Context, ids map[string]string) error {
	for k, v := range ids {
		m.ids[k] = v
	}
	return nil
}

func (m *memMedia) Missing() []string { return nil }

// --- Use case doubles ---

type MockTrialUC struct {
	ActivateFunc func(ctx context.Context, user model.TelegramUser) error
	Calls        int
}

func (m *MockTrialUC) Activate(ctx context.Context, user model.TelegramUser) error {
	m.Calls++
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, user)
	}
	return nil
}

type MockProvisioningUC struct {
	ProvisionFunc func(ctx context.Context, telegramID int64, tariff model.Tariff) (*model.ProvisionedAccount, error)
	Calls         int
}

func (m *MockProvisioningUC) Provision(ctx context.Context, telegramID int64, tariff model.Tariff) (*model.ProvisionedAccount, error) {
	m.Calls++
	return m.ProvisionFunc(ctx, telegramID, tariff)
}

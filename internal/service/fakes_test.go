package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/service"

	"go.uber.org/zap"
)

// fixedNow is the wall clock every test session sees.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// --- DataStore ---

type memStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	failSet map[string]bool
	writes  int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}, failSet: map[string]bool{}}
}

func docKey(owner, collection string) string { return owner + "/" + collection }

func (m *memStore) Get(_ context.Context, owner, collection string, out any) bool {
	m.mu.Lock()
	body, ok := m.docs[docKey(owner, collection)]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(body, out) == nil
}

func (m *memStore) Set(_ context.Context, owner, collection string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet[collection] {
		return errors.New("storage offline")
	}
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.docs[docKey(owner, collection)] = body
	m.writes++
	return nil
}

func (m *memStore) Delete(_ context.Context, owner, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docKey(owner, collection))
	return nil
}

func (m *memStore) put(t *testing.T, owner, collection string, v any) {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal seed document: %v", err)
	}
	m.mu.Lock()
	m.docs[docKey(owner, collection)] = body
	m.mu.Unlock()
}

func (m *memStore) read(t *testing.T, owner, collection string, out any) bool {
	t.Helper()
	return m.Get(context.Background(), owner, collection, out)
}

func (m *memStore) fail(collection string, on bool) {
	m.mu.Lock()
	m.failSet[collection] = on
	m.mu.Unlock()
}

// --- FlagStore ---

type memFlags struct {
	mu    sync.Mutex
	flags map[string]string
}

func newMemFlags() *memFlags { return &memFlags{flags: map[string]string{}} }

func (f *memFlags) GetFlag(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.flags[key]
	return v, ok, nil
}

func (f *memFlags) SetFlag(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[key] = value
	return nil
}

func (f *memFlags) DeleteFlag(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, key)
	return nil
}

// --- UserDirectory ---

type staticDirectory []domain.User

func (d staticDirectory) ListUsers(context.Context) []domain.User { return d }

// --- AuthProvider ---

type fakeAccount struct {
	id       string
	email    string
	password string
	metadata map[string]any
}

type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	signUps  int
	signIns  int
	signOuts []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}}
}

func (p *fakeProvider) add(id, email, password, username string) {
	p.accounts[email] = &fakeAccount{id: id, email: email, password: password, metadata: map[string]any{"username": username}}
}

func (p *fakeProvider) session(a *fakeAccount) *domain.ProviderSession {
	return &domain.ProviderSession{
		AccessToken: "tok-" + a.id,
		User:        domain.ProviderUser{ID: a.id, Email: a.email, Metadata: a.metadata},
	}
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*domain.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signIns++
	a, ok := p.accounts[email]
	if !ok || a.password != password {
		return nil, &domain.ErrProvider{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return p.session(a), nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, metadata map[string]any) (*domain.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUps++
	if _, ok := p.accounts[email]; ok {
		return nil, &domain.ErrProvider{Status: 422, Code: "user_already_exists", Message: "User already registered"}
	}
	a := &fakeAccount{id: fmt.Sprintf("uid-%d", len(p.accounts)+1), email: email, password: password, metadata: metadata}
	p.accounts[email] = a
	return p.session(a), nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts = append(p.signOuts, token)
	return nil
}

func (p *fakeProvider) UpdatePassword(_ context.Context, token, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.accounts {
		if "tok-"+a.id == token {
			a.password = newPassword
			return nil
		}
	}
	return &domain.ErrProvider{Status: 401, Code: "bad_jwt", Message: "invalid JWT"}
}

// --- TextGenerator ---

type fakeGenerator struct {
	mu        sync.Mutex
	responses []*domain.GenerateResponse
	err       error
	requests  []*domain.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.responses) == 0 {
		return &domain.GenerateResponse{Text: "ok"}, nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

// --- helpers ---

func testDeps(store *memStore, flags *memFlags, dir service.UserDirectory) service.SessionDeps {
	var n atomic.Int64
	return service.SessionDeps{
		Store:     store,
		Flags:     flags,
		Directory: dir,
		Logger:    zap.NewNop(),
		Metrics:   observability.NewMetrics(),
		Now:       func() time.Time { return fixedNow },
		NewID:     func() string { return fmt.Sprintf("id-%d", n.Add(1)) },
	}
}

var ana = domain.User{ID: "user-ana", Username: "ana", Email: "ana@studio.com"}

// existingAccount marks ana's account as already configured so Load does not seed.
func existingAccount(t *testing.T, store *memStore) {
	t.Helper()
	st := domain.DefaultSettings()
	st.UserName = "Ana"
	store.put(t, ana.ID, domain.CollectionSettings, st)
}

// loadedSession opens a session for ana over store.
func loadedSession(t *testing.T, store *memStore, dir staticDirectory) *service.Session {
	t.Helper()
	s := service.NewSession(ana, "tok-ana", testDeps(store, newMemFlags(), dir))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func jobInput(name, clientID, deadline string) domain.JobInput {
	return domain.JobInput{
		Name:        name,
		ClientID:    clientID,
		ServiceType: domain.ServiceVideo,
		Value:       1500,
		Deadline:    deadline,
		CloudLinks:  []string{},
	}
}

package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/supabase"

	"go.uber.org/zap"
)

// fakeSupabase emulates the storage object API and the GoTrue password flow.
type fakeSupabase struct {
	mu       sync.Mutex
	objects  map[string][]byte
	users    map[string]string // email -> password
	legacy   bool              // answer missing objects with 400 not_found
	lastAuth string
}

func newFakeSupabase() *fakeSupabase {
	return &fakeSupabase{objects: map[string][]byte{}, users: map[string]string{}}
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.Header.Get("Authorization")

	switch {
	case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		switch r.Method {
		case http.MethodGet:
			body, ok := f.objects[key]
			if !ok {
				if f.legacy {
					w.WriteHeader(http.StatusBadRequest)
					io.WriteString(w, `{"statusCode":"404","error":"not_found","message":"Object not found"}`)
					return
				}
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(body)
		case http.MethodPost:
			if r.Header.Get("x-upsert") != "true" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			b, _ := io.ReadAll(r.Body)
			f.objects[key] = b
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"Key":"`+key+`"}`)
		case http.MethodDelete:
			if _, ok := f.objects[key]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.objects, key)
			w.WriteHeader(http.StatusOK)
		}
	case r.URL.Path == "/auth/v1/token":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if pw, ok := f.users[body["email"]]; !ok || pw != body["password"] {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-" + body["email"],
			"refresh_token": "ref",
			"user": map[string]any{
				"id":            "uid-" + body["email"],
				"email":         body["email"],
				"user_metadata": map[string]any{"username": "ana"},
			},
		})
	case r.URL.Path == "/auth/v1/signup":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		email := body["email"].(string)
		if _, exists := f.users[email]; exists {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)
			return
		}
		f.users[email] = body["password"].(string)
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "uid-" + email,
			"email":         email,
			"user_metadata": body["data"],
		})
	case r.URL.Path == "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/auth/v1/user" && r.Method == http.MethodPut:
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, h http.Handler) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return supabase.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		srv.URL, "anon-key", "service-key",
		resilience.NewCircuitBreaker("supabase-test"),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestStorage_PutGetDelete(t *testing.T) {
	fake := newFakeSupabase()
	store := supabase.NewStorageBackend(newClient(t, fake), "app-data")
	ctx := context.Background()

	if err := store.PutDocument(ctx, "user-1", "jobs", []byte(`[{"id":"j1"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := fake.objects["app-data/user-1/jobs.json"]; !ok {
		t.Fatalf("object stored under unexpected key: %v", fake.objects)
	}
	if fake.lastAuth != "Bearer service-key" {
		t.Errorf("storage calls must use the service role key, got %q", fake.lastAuth)
	}

	body, err := store.GetDocument(ctx, "user-1", "jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `[{"id":"j1"}]` {
		t.Errorf("unexpected body %s", body)
	}

	if err := store.DeleteDocument(ctx, "user-1", "jobs"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteDocument(ctx, "user-1", "jobs"); err != nil {
		t.Fatalf("deleting a missing document should not fail: %v", err)
	}
}

func TestStorage_MissingIsAbsent(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		fake := newFakeSupabase()
		fake.legacy = legacy
		store := supabase.NewStorageBackend(newClient(t, fake), "app-data")

		body, err := store.GetDocument(context.Background(), "nobody", "clients")
		if err != nil {
			t.Fatalf("legacy=%v: expected no error for a missing object, got %v", legacy, err)
		}
		if body != nil {
			t.Fatalf("legacy=%v: expected nil body, got %s", legacy, body)
		}
	}
}

func TestStorage_ServerErrorSurfaces(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	store := supabase.NewStorageBackend(newClient(t, h), "app-data")

	err := store.PutDocument(context.Background(), "user-1", "jobs", []byte(`[]`))
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestAuth_SignInAndErrors(t *testing.T) {
	fake := newFakeSupabase()
	fake.users["ana@x.com"] = "secret1"
	auth := supabase.NewAuthProvider(newClient(t, fake))
	ctx := context.Background()

	sess, err := auth.SignIn(ctx, "ana@x.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.AccessToken != "tok-ana@x.com" || sess.User.ID != "uid-ana@x.com" {
		t.Errorf("unexpected session %+v", sess)
	}
	if u := sess.User.ToUser(); u.Username != "ana" {
		t.Errorf("expected username from metadata, got %q", u.Username)
	}

	_, err = auth.SignIn(ctx, "ana@x.com", "wrong")
	var provider *domain.ErrProvider
	if !errors.As(err, &provider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if provider.Code != "invalid_credentials" || provider.Status != http.StatusBadRequest {
		t.Errorf("unexpected provider error %+v", provider)
	}
}

func TestAuth_SignUpDuplicate(t *testing.T) {
	fake := newFakeSupabase()
	auth := supabase.NewAuthProvider(newClient(t, fake))
	ctx := context.Background()

	sess, err := auth.SignUp(ctx, "bob@x.com", "secret1", map[string]any{"username": "bob"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess.User.ToUser().Username != "bob" {
		t.Errorf("expected username bob, got %+v", sess.User)
	}

	_, err = auth.SignUp(ctx, "bob@x.com", "secret1", nil)
	var provider *domain.ErrProvider
	if !errors.As(err, &provider) || provider.Code != "user_already_exists" {
		t.Fatalf("expected user_already_exists, got %v", err)
	}
}

func TestAuth_UpdatePasswordUsesUserToken(t *testing.T) {
	fake := newFakeSupabase()
	auth := supabase.NewAuthProvider(newClient(t, fake))

	if err := auth.UpdatePassword(context.Background(), "tok-ana@x.com", "nova123"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if fake.lastAuth != "Bearer tok-ana@x.com" {
		t.Errorf("expected user bearer, got %q", fake.lastAuth)
	}
	if err := auth.SignOut(context.Background(), ""); err != nil {
		t.Errorf("sign out without token should be a no-op, got %v", err)
	}
}

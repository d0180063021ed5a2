package service

import (
	"context"
	"errors"
	"fmt"
	"genarchive/internal/entity"
	"genarchive/internal/llm"
	"genarchive/internal/storage"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeRepo struct {
	mu        sync.Mutex
	entries   map[string]*entity.DbHistoryEntry
	creates   int
	updates   int
	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[string]*entity.DbHistoryEntry{}}
}

func (r *fakeRepo) CreateHistoryEntry(_ context.Context, entry *entity.DbHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	copied := *entry
	r.entries[entry.ID] = &copied
	return nil
}

func (r *fakeRepo) UpdateHistoryEntry(_ context.Context, id string, updates entity.HistoryEntryUpdates) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.updateErr != nil {
		return r.updateErr
	}
	entry, ok := r.entries[id]
	if !ok {
		return errors.New("not found")
	}
	if entry.Status.IsTerminal() {
		return errors.New("terminal")
	}
	if updates.Status != nil {
		entry.Status = *updates.Status
	}
	if updates.Images != nil {
		entry.Images = *updates.Images
	}
	if updates.Error != nil {
		entry.Error = *updates.Error
	}
	return nil
}

func (r *fakeRepo) GetHistoryEntry(_ context.Context, id string) (*entity.DbHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *entry
	return &copied, nil
}

func (r *fakeRepo) ListHistoryEntries(context.Context, *entity.HistoryQuery) ([]entity.DbHistoryEntry, *entity.Meta, error) {
	return nil, &entity.Meta{}, nil
}

func (r *fakeRepo) FailStaleHistoryEntries(context.Context, time.Time, string) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) only(t *testing.T) *entity.DbHistoryEntry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.entries, 1)
	for _, entry := range r.entries {
		copied := *entry
		return &copied
	}
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]byte{}}
}

func (s *fakeStore) Save(_ context.Context, data []byte, opts storage.SaveOptions) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	key := fmt.Sprintf("%s/%s.%s", opts.Category, opts.BaseName, opts.Extension)
	s.mu.Lock()
	s.saved[key] = data
	s.mu.Unlock()
	return key, nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://store.example/" + key
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	counts []int
	urls   []string
	err    error
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, imageCount int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.counts = append(g.counts, imageCount)
	return g.urls, g.err
}

// newArtifactHost serves png bytes for every path except those listed in missing.
func newArtifactHost(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range missing {
			if r.URL.Path == m {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestService(repo *fakeRepo, store storage.Storage, gen llm.Generator) *GenerationService {
	return NewGenerationService(repo, store, map[string]llm.Generator{
		"sticker-generation": gen,
		"logo-generation":    gen,
	}, Options{
		FetchTimeout:  5 * time.Second,
		StoreTimeout:  5 * time.Second,
		LedgerTimeout: time.Second,
		MaxImageCount: 8,
	})
}

func TestRunScenarioStoresEveryImage(t *testing.T) {
	var backendCalls int
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate-sticker":
			backendCalls++
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"images":["/out/1.png","http://%s/cdn/out/2.png"]}`, r.Host)
		default:
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngBytes)
		}
	}))
	defer backend.Close()

	gen, err := llm.NewGenerator(llm.Endpoint{Name: "sticker", BaseURL: backend.URL, Path: "/generate-sticker", Timeout: 5 * time.Second})
	require.NoError(t, err)

	repo := newFakeRepo()
	store := newFakeStore()
	svc := newTestService(repo, store, gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "red fox logo", ImageCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, backendCalls)

	require.Len(t, result.Images, 2)
	assert.Equal(t, backend.URL+"/out/1.png", result.Images[0].OriginalURL)
	assert.Equal(t, backend.URL+"/cdn/out/2.png", result.Images[1].OriginalURL)
	for i, img := range result.Images {
		assert.True(t, strings.HasPrefix(img.URL, "https://store.example/generated-stickers/sticker_"), img.URL)
		assert.True(t, strings.HasSuffix(img.URL, fmt.Sprintf("_%d.png", i)), img.URL)
		assert.Equal(t, img.URL, img.FirebaseURL)
		assert.True(t, strings.HasPrefix(img.ID, "local-sticker-"))
		assert.True(t, strings.HasSuffix(img.ID, fmt.Sprintf("-%d", i)))
	}
	assert.Equal(t, "Successfully generated 2 stickers", result.Message)
	assert.Len(t, store.saved, 2)

	entry := repo.only(t)
	assert.Equal(t, result.HistoryID, entry.ID)
	assert.Equal(t, entity.StatusCompleted, entry.Status)
	assert.Equal(t, "Sticker: red fox logo", entry.Prompt)
	assert.Equal(t, "local-sticker-model", entry.Model)
	assert.Equal(t, "sticker-generation", entry.GenerationType)
	assert.Equal(t, []entity.ArtifactRef(result.Images), []entity.ArtifactRef(entry.Images))
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.updates)
}

func TestRunBackendFailureMarksEntryFailed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	gen, err := llm.NewGenerator(llm.Endpoint{Name: "sticker", BaseURL: backend.URL, Path: "/generate-sticker", Timeout: 5 * time.Second})
	require.NoError(t, err)

	repo := newFakeRepo()
	svc := newTestService(repo, newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "red fox logo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "Local API error: 503 Service Unavailable", err.Error())
	assert.NotEmpty(t, result.HistoryID)
	assert.Nil(t, result.Images)

	entry := repo.only(t)
	assert.Equal(t, result.HistoryID, entry.ID)
	assert.Equal(t, entity.StatusFailed, entry.Status)
	assert.Equal(t, "Local API error: 503 Service Unavailable", entry.Error)
}

func TestRunSingleFetchFailureFailsBatch(t *testing.T) {
	host := newArtifactHost(t, "/b.png")
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png", host.URL + "/b.png", host.URL + "/c.png"}}
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "fox", ImageCount: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "Failed to download sticker: 404 Not Found", err.Error())
	assert.Nil(t, result.Images)

	entry := repo.only(t)
	assert.Equal(t, entity.StatusFailed, entry.Status)
	assert.Empty(t, entry.Images)
	assert.Equal(t, err.Error(), entry.Error)
}

func TestRunStoreFailureFailsBatch(t *testing.T) {
	host := newArtifactHost(t)
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png"}}
	repo := newFakeRepo()
	store := newFakeStore()
	store.saveErr = errors.New("bucket unavailable")
	svc := newTestService(repo, store, gen)

	_, err := svc.Run(context.Background(), "logo-generation", entity.GenerationRequest{Prompt: "fox"})
	assert.ErrorIs(t, err, ErrStore)
	assert.Contains(t, err.Error(), "bucket unavailable")

	entry := repo.only(t)
	assert.Equal(t, entity.StatusFailed, entry.Status)
	assert.Equal(t, "Logo: fox", entry.Prompt)
}

func TestRunPreservesBackendOrder(t *testing.T) {
	delays := map[string]time.Duration{"/u0.png": 60 * time.Millisecond, "/u1.png": 30 * time.Millisecond, "/u2.png": 0}
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delays[r.URL.Path])
		w.Header().Set("Content-Type", "image/webp")
		w.Write(pngBytes)
	}))
	defer host.Close()

	sources := []string{host.URL + "/u0.png", host.URL + "/u1.png", host.URL + "/u2.png"}
	gen := &fakeGenerator{urls: sources}
	svc := newTestService(newFakeRepo(), newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "fox", ImageCount: 3})
	require.NoError(t, err)
	require.Len(t, result.Images, 3)
	for k, img := range result.Images {
		assert.Equal(t, sources[k], img.OriginalURL)
		assert.True(t, strings.HasSuffix(img.URL, fmt.Sprintf("_%d.webp", k)), img.URL)
	}
}

func TestRunValidationSkipsLedgerAndBackend(t *testing.T) {
	tests := []struct {
		name string
		req  entity.GenerationRequest
	}{
		{name: "empty prompt", req: entity.GenerationRequest{Prompt: ""}},
		{name: "blank prompt", req: entity.GenerationRequest{Prompt: "   \t"}},
		{name: "negative count", req: entity.GenerationRequest{Prompt: "fox", ImageCount: -1}},
		{name: "count over limit", req: entity.GenerationRequest{Prompt: "fox", ImageCount: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			gen := &fakeGenerator{}
			svc := newTestService(repo, newFakeStore(), gen)

			result, err := svc.Run(context.Background(), "sticker-generation", tt.req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, result.HistoryID)
			assert.Zero(t, repo.creates)
			assert.Zero(t, gen.calls)
		})
	}
}

func TestRunDefaultsImageCountToOne(t *testing.T) {
	host := newArtifactHost(t)
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png"}}
	svc := newTestService(newFakeRepo(), newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "fox"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, gen.counts)
	assert.Equal(t, "Successfully generated 1 sticker", result.Message)
}

func TestRunLedgerCreateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("database is locked")
	gen := &fakeGenerator{}
	svc := newTestService(repo, newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "fox"})
	assert.ErrorIs(t, err, ErrLedger)
	assert.Empty(t, result.HistoryID)
	assert.Zero(t, gen.calls)
}

func TestRunLedgerUpdateFailureKeepsOutcome(t *testing.T) {
	host := newArtifactHost(t)
	repo := newFakeRepo()
	repo.updateErr = errors.New("connection reset")
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png"}}
	svc := newTestService(repo, newFakeStore(), gen)

	result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{Prompt: "fox"})
	require.NoError(t, err)
	assert.Len(t, result.Images, 1)
	assert.Equal(t, 1, repo.updates)
}

func TestRunLedgerFailUpdateKeepsPrimaryError(t *testing.T) {
	host := newArtifactHost(t, "/a.png")

	tests := []struct {
		name     string
		gen      *fakeGenerator
		wantKind error
		wantMsg  string
	}{
		{
			name:     "artifact fetch fails",
			gen:      &fakeGenerator{urls: []string{host.URL + "/a.png"}},
			wantKind: ErrFetch,
			wantMsg:  "Failed to download sticker: 404 Not Found",
		},
		{
			name: "backend fails",
			gen: &fakeGenerator{err: &llm.UpstreamError{
				Kind:       llm.UpstreamStatus,
				StatusCode: http.StatusBadGateway,
				Status:     "502 Bad Gateway",
			}},
			wantKind: ErrUpstream,
			wantMsg:  "Local API error: 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.updateErr = errors.New("connection reset")
			svc := newTestService(repo, newFakeStore(), tt.gen)

			var statuses []entity.HistoryStatus
			svc.SetNotifyFunc(func(_, _ string, status entity.HistoryStatus, _ string) {
				statuses = append(statuses, status)
			})

			result, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{ClientID: "c", Prompt: "fox"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.NotErrorIs(t, err, ErrLedger)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.NotEmpty(t, result.HistoryID)
			assert.Nil(t, result.Images)
			assert.Equal(t, 1, repo.updates)

			// 写入失败时记录停留在 generating，由启动对账收尾
			entry := repo.only(t)
			assert.Equal(t, result.HistoryID, entry.ID)
			assert.Equal(t, entity.StatusGenerating, entry.Status)
			assert.Equal(t, []entity.HistoryStatus{entity.StatusGenerating, entity.StatusFailed}, statuses)
		})
	}
}

func TestRunUnknownKind(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeStore(), &fakeGenerator{})

	_, err := svc.Run(context.Background(), "video-generation", entity.GenerationRequest{Prompt: "fox"})
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Zero(t, repo.creates)
}

func TestRunIgnoresCallerCancellation(t *testing.T) {
	host := newArtifactHost(t)
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png"}}
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeStore(), gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, "sticker-generation", entity.GenerationRequest{Prompt: "fox"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, repo.only(t).Status)
}

func TestRunNotifiesLifecycle(t *testing.T) {
	host := newArtifactHost(t, "/a.png")
	gen := &fakeGenerator{urls: []string{host.URL + "/a.png"}}
	svc := newTestService(newFakeRepo(), newFakeStore(), gen)

	var statuses []entity.HistoryStatus
	var lastErr string
	svc.SetNotifyFunc(func(clientID, historyID string, status entity.HistoryStatus, errMsg string) {
		assert.Equal(t, "client-1", clientID)
		assert.NotEmpty(t, historyID)
		statuses = append(statuses, status)
		lastErr = errMsg
	})

	_, err := svc.Run(context.Background(), "sticker-generation", entity.GenerationRequest{ClientID: "client-1", Prompt: "fox"})
	require.Error(t, err)
	assert.Equal(t, []entity.HistoryStatus{entity.StatusGenerating, entity.StatusFailed}, statuses)
	assert.Equal(t, err.Error(), lastErr)
}

package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cvcutter/internal/services"
)

// fakeService records uploads and fails paths listed in failPaths until
// their counter runs out.
type fakeService struct {
	uploads   []string
	playlists map[string]string
	failPaths map[string]int
	failWith  error
}

func newFakeService() *fakeService {
	return &fakeService{
		playlists: make(map[string]string),
		failPaths: make(map[string]int),
	}
}

func (f *fakeService) Upload(ctx context.Context, filePath string, meta VideoMetadata, progress func(float64)) (string, error) {
	if remaining := f.failPaths[filePath]; remaining > 0 {
		f.failPaths[filePath] = remaining - 1
		return "", f.failWith
	}
	if progress != nil {
		progress(1.0)
	}
	f.uploads = append(f.uploads, filePath)
	return "vid-" + filepath.Base(filePath), nil
}

func (f *fakeService) AddToPlaylist(ctx context.Context, videoID, playlistID string) error {
	f.playlists[videoID] = playlistID
	return nil
}

// writeBatch creates n video files with ascending modification times and a
// metadata document with entries entries.
func writeBatch(t *testing.T, n, entries int) (dir, metaPath string) {
	t.Helper()
	dir = t.TempDir()
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "show_performance_"+string(rune('1'+i))+".mp4")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		at := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, at, at); err != nil {
			t.Fatalf("Chtimes: %v", err)
		}
	}

	doc := metadataDocument{}
	for i := 0; i < entries; i++ {
		doc.Videos = append(doc.Videos, VideoMetadata{
			Title: "Performance " + string(rune('1'+i)),
			Tags:  []string{"live"},
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	metaPath = filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir, metaPath
}

func newTestScheduler(t *testing.T, service Service, store StateStore, confirm ConfirmFunc) (*Scheduler, *testClock) {
	t.Helper()
	quota, clock := newTestQuota(t, store)
	s := New(service, quota, Config{MaxRetries: 5, DefaultPrivacy: "unlisted"}, confirm, nil)
	s.sleep = noSleep
	return s, clock
}

func TestRunUploadsAllInOrder(t *testing.T) {
	dir, metaPath := writeBatch(t, 3, 3)
	service := newFakeService()
	store := NewMemoryStore()
	sched, _ := newTestScheduler(t, service, store, nil)

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 3 || summary.Success != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(service.uploads) != 3 {
		t.Fatalf("uploaded %d files, want 3", len(service.uploads))
	}
	for i, path := range service.uploads {
		want := "show_performance_" + string(rune('1'+i)) + ".mp4"
		if filepath.Base(path) != want {
			t.Fatalf("upload %d = %s, want %s", i, filepath.Base(path), want)
		}
	}
}

func TestRunCountMismatchIsFatalWithoutConfirmation(t *testing.T) {
	dir, metaPath := writeBatch(t, 6, 5)
	service := newFakeService()
	sched, _ := newTestScheduler(t, service, NewMemoryStore(), nil)

	_, err := sched.Run(context.Background(), dir, metaPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(service.uploads) != 0 {
		t.Fatalf("mismatched batch must not upload, got %d uploads", len(service.uploads))
	}
}

func TestRunCountMismatchConfirmedTruncates(t *testing.T) {
	dir, metaPath := writeBatch(t, 6, 5)
	service := newFakeService()
	confirmed := false
	confirm := func(files []string, metadata []VideoMetadata, problem error) bool {
		if problem != nil {
			confirmed = true
		}
		return true
	}
	sched, _ := newTestScheduler(t, service, NewMemoryStore(), confirm)

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !confirmed {
		t.Fatal("confirm was never asked about the mismatch")
	}
	if summary.Success != 5 {
		t.Fatalf("success = %d, want 5 (trailing file dropped)", summary.Success)
	}
}

func TestRunConfirmCanCancelCleanBatch(t *testing.T) {
	dir, metaPath := writeBatch(t, 2, 2)
	service := newFakeService()
	confirm := func(files []string, metadata []VideoMetadata, problem error) bool {
		return problem != nil // approve only problems, veto the go-ahead
	}
	sched, _ := newTestScheduler(t, service, NewMemoryStore(), confirm)

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(service.uploads) != 0 || summary.Success != 0 {
		t.Fatalf("vetoed batch must not upload: %+v", summary)
	}
}

func TestRunRecordsOneFailureAfterRetryExhaustion(t *testing.T) {
	dir, metaPath := writeBatch(t, 3, 3)
	service := newFakeService()
	service.failWith = services.Wrap(services.ErrTransient, "upload", "insert", "server returned 503", nil)
	// The second file fails more times than the retry budget allows.
	service.failPaths[filepath.Join(dir, "show_performance_2.mp4")] = 100
	store := NewMemoryStore()
	sched, _ := newTestScheduler(t, service, store, nil)

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Success != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 success / 1 failed", summary)
	}

	state, _ := store.Load()
	failed := 0
	for _, entry := range state.UploadHistory {
		if entry.Status == StatusFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("failed history entries = %d, want exactly 1", failed)
	}
	// 1 initial attempt plus 5 retries were consumed.
	if remaining := service.failPaths[filepath.Join(dir, "show_performance_2.mp4")]; remaining != 94 {
		t.Fatalf("attempts consumed = %d, want 6", 100-remaining)
	}
}

func TestRunPermanentFailureSkipsWithoutRetry(t *testing.T) {
	dir, metaPath := writeBatch(t, 2, 2)
	service := newFakeService()
	service.failWith = errors.New("metadata rejected")
	service.failPaths[filepath.Join(dir, "show_performance_1.mp4")] = 100
	store := NewMemoryStore()
	sched, _ := newTestScheduler(t, service, store, nil)

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Success != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if remaining := service.failPaths[filepath.Join(dir, "show_performance_1.mp4")]; remaining != 99 {
		t.Fatalf("permanent failure must not retry, consumed %d attempts", 100-remaining)
	}
}

func TestRunBlocksAcrossQuotaWindow(t *testing.T) {
	dir, metaPath := writeBatch(t, 3, 3)
	service := newFakeService()
	store := NewMemoryStore()

	clock := &testClock{at: time.Date(2026, 8, 29, 15, 0, 0, 0, pacific)}
	quota := NewQuotaManager(store, QuotaConfig{
		DailyBudgetUnits: 3200,
		UploadCostUnits:  1600,
		Location:         pacific,
	}, nil)
	quota.now = clock.now
	waits := 0
	quota.wait = func(ctx context.Context, d time.Duration) error {
		waits++
		clock.advance(d) // jump the clock past the reset instant
		return nil
	}

	sched := New(service, quota, Config{MaxRetries: 5, DefaultPrivacy: "unlisted"}, nil, nil)
	sched.sleep = noSleep

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Success != 3 {
		t.Fatalf("success = %d, want 3", summary.Success)
	}
	if waits != 1 {
		t.Fatalf("quota waits = %d, want 1 (two uploads fit the first window)", waits)
	}

	state, _ := store.Load()
	if state.UploadsToday != 1 {
		t.Fatalf("uploads_today after reset = %d, want 1", state.UploadsToday)
	}
}

// failingStore errors every Save after the first allowedSaves calls.
type failingStore struct {
	*MemoryStore
	allowedSaves int
}

func (f *failingStore) Save(state State) error {
	if f.Saves() >= f.allowedSaves {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(state)
}

func TestRunStatePersistenceFailureAbortsWithoutMislabeling(t *testing.T) {
	dir, metaPath := writeBatch(t, 1, 1)
	service := newFakeService()
	// The first save arms the quota window; the save flushing the upload
	// record fails.
	store := &failingStore{MemoryStore: NewMemoryStore(), allowedSaves: 1}
	sched, _ := newTestScheduler(t, service, store, nil)

	_, err := sched.Run(context.Background(), dir, metaPath)
	if err == nil {
		t.Fatal("state persistence failure must abort the batch")
	}
	if len(service.uploads) != 1 {
		t.Fatalf("uploads = %d, want the one that succeeded", len(service.uploads))
	}
	state, _ := store.MemoryStore.Load()
	for _, entry := range state.UploadHistory {
		if entry.Status == StatusFailed {
			t.Fatalf("live video recorded as failed: %+v", entry)
		}
	}
}

func TestSummaryCountsCurrentBatchOnly(t *testing.T) {
	store := NewMemoryStore()
	quota, _ := newTestQuota(t, store)
	// Failures left over from an earlier run must not leak into this
	// batch's summary.
	if err := quota.RecordFailure("old_1.mp4", "server returned 503"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := quota.RecordFailure("old_2.mp4", "server returned 503"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	dir, metaPath := writeBatch(t, 1, 1)
	service := newFakeService()
	sched := New(service, quota, Config{MaxRetries: 5, DefaultPrivacy: "unlisted"}, nil, nil)
	sched.sleep = noSleep

	summary, err := sched.Run(context.Background(), dir, metaPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 1 || summary.Success != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1/1/0", summary)
	}
}

func TestRunAddsToPlaylistWhenRequested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encore.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	doc := metadataDocument{Videos: []VideoMetadata{{Title: "Encore", PlaylistID: "PL123"}}}
	data, _ := json.Marshal(doc)
	metaPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	service := newFakeService()
	sched, _ := newTestScheduler(t, service, NewMemoryStore(), nil)
	if _, err := sched.Run(context.Background(), dir, metaPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if service.playlists["vid-encore.mp4"] != "PL123" {
		t.Fatalf("playlist placements = %v", service.playlists)
	}
}

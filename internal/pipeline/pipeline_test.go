package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photolog-backend/internal/location"
	"photolog-backend/internal/media"
	"photolog-backend/internal/models"
	"photolog-backend/internal/notify"
	"photolog-backend/internal/permissions"
	"photolog-backend/internal/stats"
	"photolog-backend/internal/storage"
)

type fakeDocStore struct {
	mu      sync.Mutex
	records []*models.PhotoLog
	err     error
}

func (f *fakeDocStore) Create(_ context.Context, rec *models.PhotoLog) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	now := time.Now()
	rec.CreatedAt = now
	f.records = append(f.records, rec)
	return now, nil
}

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, string, *models.PhotoLog) error {
	return errors.New("delivery rejected")
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (n *recordingNotifier) ShowLocal(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bodies)
}

type env struct {
	runner   *Runner
	store    *fakeDocStore
	stats    *stats.Store
	notifier *recordingNotifier
	locator  Locator
	srcFile  string
}

func newEnv(t *testing.T, docStore *fakeDocStore, confirmer notify.Confirmer, loc Locator) *env {
	t.Helper()

	dir := t.TempDir()
	mediaStore, err := storage.NewLocalStore(filepath.Join(dir, "media"))
	require.NoError(t, err)

	srcFile := filepath.Join(dir, "capture.jpg")
	require.NoError(t, os.WriteFile(srcFile, []byte("jpeg"), 0o600))

	statsStore := stats.NewStore()
	notifier := &recordingNotifier{}

	return &env{
		runner:   NewRunner(docStore, mediaStore, confirmer, notifier, statsStore, nil, location.Options{Timeout: time.Second}),
		store:    docStore,
		stats:    statsStore,
		notifier: notifier,
		locator:  loc,
		srcFile:  srcFile,
	}
}

func grantedLocator(lat, lon float64) Locator {
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	source := location.SourceFunc(func(context.Context, location.Options) (models.Position, error) {
		return models.Position{Coordinates: models.Coordinates{Latitude: lat, Longitude: lon}}, nil
	})
	return location.NewProvider(source, perms, "android", 33)
}

func deniedLocator() Locator {
	source := location.SourceFunc(func(context.Context, location.Options) (models.Position, error) {
		return models.Position{}, nil
	})
	return location.NewProvider(source, permissions.NewStatic(nil), "android", 33)
}

func selected(uri string) media.Result {
	return media.Result{Kind: media.Selected, LocalURI: uri}
}

func TestRunCancelledHasNoSideEffects(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, grantedLocator(1, 2))

	out, err := e.runner.Run(context.Background(), "dev-1", media.Result{Kind: media.Cancelled}, e.locator, storage.MediaFilename())
	require.NoError(t, err)

	assert.Empty(t, out.ImagePath)
	assert.Equal(t, stats.Snapshot{}, e.stats.Snapshot())
	assert.Equal(t, 0, e.notifier.count())
	assert.Empty(t, e.store.records)
}

func TestRunPickerErrorHasNoSideEffects(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, grantedLocator(1, 2))

	out, err := e.runner.Run(context.Background(), "dev-1", media.Result{Kind: media.Failed, Message: "boom"}, e.locator, storage.MediaFilename())
	require.NoError(t, err)

	assert.False(t, out.WriteAttempted)
	assert.Equal(t, stats.Snapshot{}, e.stats.Snapshot())
	assert.Equal(t, 0, e.notifier.count())
}

func TestRunSuccess(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, grantedLocator(-6.2, 106.8))

	out, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), e.locator, storage.MediaFilename())
	require.NoError(t, err)

	assert.True(t, out.WriteOK)
	assert.True(t, out.PushOK)
	assert.FileExists(t, out.ImagePath)

	snap := e.stats.Snapshot()
	assert.Equal(t, stats.Snapshot{DocWriteSuccess: 1, PushSuccess: 1}, snap)

	require.Len(t, e.store.records, 1)
	rec := e.store.records[0]
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.Equal(t, -6.2, rec.Latitude)
	assert.Equal(t, 106.8, rec.Longitude)
	assert.Equal(t, out.ImagePath, rec.ImagePath)
	assert.False(t, rec.CreatedAt.IsZero())

	require.Equal(t, 1, e.notifier.count())
	assert.Equal(t, NotificationTitle, e.notifier.titles[0])
	assert.Equal(t, "Store: 1 successful, 0 failed\nPush: 1 successful, 0 failed", e.notifier.bodies[0])
}

func TestRunWriteFailure(t *testing.T) {
	docStore := &fakeDocStore{err: errors.New("quota exceeded")}
	e := newEnv(t, docStore, notify.StubConfirmer{}, grantedLocator(1, 2))

	out, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), e.locator, storage.MediaFilename())
	require.NoError(t, err)

	assert.True(t, out.WriteAttempted)
	assert.False(t, out.WriteOK)
	assert.True(t, out.PushOK)

	snap := e.stats.Snapshot()
	assert.Equal(t, stats.Snapshot{DocWriteFailed: 1, PushSuccess: 1}, snap)

	require.Equal(t, 1, e.notifier.count())
	assert.Equal(t, "Store: 0 successful, 1 failed\nPush: 1 successful, 0 failed", e.notifier.bodies[0])
}

func TestRunPushFailure(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, failingConfirmer{}, grantedLocator(1, 2))

	out, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), e.locator, storage.MediaFilename())
	require.NoError(t, err)

	assert.True(t, out.WriteOK)
	assert.False(t, out.PushOK)

	snap := e.stats.Snapshot()
	assert.Equal(t, stats.Snapshot{DocWriteSuccess: 1, PushFailed: 1}, snap)

	require.Equal(t, 1, e.notifier.count())
	assert.Equal(t, "Store: 1 successful, 0 failed\nPush: 0 successful, 1 failed", e.notifier.bodies[0])
}

func TestRunLocationDeniedKeepsPhotoWritesNothing(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, deniedLocator())

	out, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), e.locator, storage.MediaFilename())
	require.NoError(t, err)

	// Photo stored locally, but no record without both coordinates.
	assert.FileExists(t, out.ImagePath)
	assert.Nil(t, out.Coordinates)
	assert.False(t, out.WriteAttempted)
	assert.Empty(t, e.store.records)
	assert.Equal(t, stats.Snapshot{}, e.stats.Snapshot())
	assert.Equal(t, 0, e.notifier.count())
}

func TestRunLocationTimeoutSkipsWrite(t *testing.T) {
	slow := location.SourceFunc(func(ctx context.Context, _ location.Options) (models.Position, error) {
		<-ctx.Done()
		return models.Position{}, ctx.Err()
	})
	loc := location.NewProvider(slow, permissions.NewStatic([]string{permissions.FineLocation}), "ios", 17)

	docStore := &fakeDocStore{}
	e := newEnv(t, docStore, notify.StubConfirmer{}, loc)
	e.runner.locOpts = location.Options{Timeout: 20 * time.Millisecond}

	out, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), loc, storage.MediaFilename())
	require.NoError(t, err)

	assert.False(t, out.WriteAttempted)
	assert.Empty(t, docStore.records)
	assert.Equal(t, stats.Snapshot{}, e.stats.Snapshot())
}

func TestRunCopyFailureIsTerminal(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, grantedLocator(1, 2))

	_, err := e.runner.Run(context.Background(), "dev-1", selected("/nonexistent.jpg"), e.locator, storage.MediaFilename())
	require.Error(t, err)

	assert.Equal(t, stats.Snapshot{}, e.stats.Snapshot())
	assert.Equal(t, 0, e.notifier.count())
}

func TestConcurrentRunsSumTheirOutcomes(t *testing.T) {
	e := newEnv(t, &fakeDocStore{}, notify.StubConfirmer{}, grantedLocator(1, 2))

	const runs = 10
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.runner.Run(context.Background(), "dev-1", selected(e.srcFile), e.locator, storage.MediaFilename())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap := e.stats.Snapshot()
	assert.Equal(t, uint64(runs), snap.DocWriteSuccess)
	assert.Equal(t, uint64(runs), snap.PushSuccess)
	assert.Equal(t, runs, e.notifier.count())
	assert.Len(t, e.store.records, runs)
}

func TestSummaryBody(t *testing.T) {
	assert.Equal(t, "Store: 1 successful, 0 failed\nPush: 1 successful, 0 failed", SummaryBody(true, true))
	assert.Equal(t, "Store: 0 successful, 1 failed\nPush: 0 successful, 1 failed", SummaryBody(false, false))
}

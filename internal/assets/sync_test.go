package assets

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/picload/picload/internal/models"
	"github.com/picload/picload/internal/users"
)

// fakeStore counts deletes and can fail selected filenames.
type fakeStore struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func (f *fakeStore) Delete(ctx context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[filename] {
		return errors.New("store unavailable")
	}
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeStore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

// orderCheckingDir fails the test if the list update runs before every
// remote delete of the batch has completed.
type orderCheckingDir struct {
	users.UserRepository
	t       *testing.T
	store   *fakeStore
	expects int
}

func (d *orderCheckingDir) RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error) {
	if got := d.store.deleteCount(); got != d.expects {
		d.t.Errorf("list update issued after %d remote deletes, want %d", got, d.expects)
	}
	return d.UserRepository.RemoveImagesByFilename(ctx, id, filenames)
}

type recordingOrphans struct {
	mu   sync.Mutex
	refs []models.ImageRef
}

func (r *recordingOrphans) Record(ctx context.Context, userID string, refs []models.ImageRef, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, refs...)
}

func seedUser(t *testing.T, repo users.UserRepository, filenames ...string) *models.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &models.User{Email: "o@example.com", FirstName: "O", LastName: "W"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	refs := make([]models.ImageRef, 0, len(filenames))
	for _, fn := range filenames {
		refs = append(refs, models.ImageRef{URL: "https://h/upload/" + fn, Filename: fn})
	}
	if len(refs) > 0 {
		if _, err := repo.AppendImages(context.Background(), u.ID, refs); err != nil {
			t.Fatalf("seed images: %v", err)
		}
	}
	return u
}

func TestAttachAppendsInOrder(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo)
	sync := NewSynchronizer(repo, &fakeStore{}, nil)

	got, err := sync.Attach(context.Background(), u.ID, []models.ImageRef{
		{URL: "u1", Filename: "f1"},
		{URL: "u2", Filename: "f2"},
	})
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if len(got.Images) != 2 || got.Images[0].Filename != "f1" || got.Images[1].Filename != "f2" {
		t.Fatalf("unexpected images: %+v", got.Images)
	}
}

func TestAttachFailureRecordsOrphans(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := &recordingOrphans{}
	sync := NewSynchronizer(repo, &fakeStore{}, rec)

	refs := []models.ImageRef{{URL: "u1", Filename: "f1"}}
	_, err := sync.Attach(context.Background(), "no-such-user", refs)
	if err != users.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rec.refs) != 1 || rec.refs[0].Filename != "f1" {
		t.Fatalf("expected orphan record for f1, got %+v", rec.refs)
	}
}

func TestRemoveDeletesRemoteBeforeListUpdate(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo, "a", "b", "c")
	store := &fakeStore{}
	dir := &orderCheckingDir{UserRepository: repo, t: t, store: store, expects: 2}
	sync := NewSynchronizer(dir, store, nil)

	got, err := sync.Remove(context.Background(), u.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(got.Images) != 1 || got.Images[0].Filename != "c" {
		t.Fatalf("unexpected images after remove: %+v", got.Images)
	}
}

func TestRemoveToleratesAbsentFilenames(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo, "a", "b", "c")
	sync := NewSynchronizer(repo, &fakeStore{}, nil)

	got, err := sync.Remove(context.Background(), u.ID, []string{"b", "z"})
	if err != nil {
		t.Fatalf("remove with absent filename must not error: %v", err)
	}
	if len(got.Images) != 2 || got.Images[0].Filename != "a" || got.Images[1].Filename != "c" {
		t.Fatalf("unexpected images: %+v", got.Images)
	}
}

func TestRemovePartialFailureKeepsFailedEntries(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo, "a", "b", "c")
	store := &fakeStore{failOn: map[string]bool{"b": true}}
	sync := NewSynchronizer(repo, store, nil)

	got, err := sync.Remove(context.Background(), u.ID, []string{"a", "b"})
	var rse *RemoteStoreError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteStoreError, got %v", err)
	}
	if len(rse.Failed) != 1 || rse.Failed[0] != "b" {
		t.Fatalf("unexpected failed set: %v", rse.Failed)
	}
	// "a" is gone from the list, "b" keeps its entry
	if len(got.Images) != 2 || got.Images[0].Filename != "b" || got.Images[1].Filename != "c" {
		t.Fatalf("unexpected images: %+v", got.Images)
	}
}

func TestRemoveSurvivesCallerCancellation(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo, "a", "b")
	sync := NewSynchronizer(repo, &fakeStore{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already disconnected
	got, err := sync.Remove(ctx, u.ID, []string{"a"})
	if err != nil {
		t.Fatalf("remove must complete despite cancellation: %v", err)
	}
	if len(got.Images) != 1 || got.Images[0].Filename != "b" {
		t.Fatalf("unexpected images: %+v", got.Images)
	}
}

func TestConcurrentOverlappingRemoves(t *testing.T) {
	repo := users.NewMemoryRepository()
	u := seedUser(t, repo, "a", "b", "c", "d", "e")
	store := &fakeStore{}
	syncr := NewSynchronizer(repo, store, nil)

	var wg sync.WaitGroup
	batches := [][]string{{"a", "b", "c"}, {"b", "c", "d"}}
	for _, batch := range batches {
		wg.Add(1)
		go func(batch []string) {
			defer wg.Done()
			if _, err := syncr.Remove(context.Background(), u.ID, batch); err != nil {
				t.Errorf("remove %v: %v", batch, err)
			}
		}(batch)
	}
	wg.Wait()

	got, err := repo.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	left := make([]string, 0, len(got.Images))
	for _, img := range got.Images {
		left = append(left, img.Filename)
	}
	sort.Strings(left)
	// nothing either batch requested may survive, and "e" must
	if len(left) != 1 || left[0] != "e" {
		t.Fatalf("unexpected surviving filenames: %v", left)
	}
}

package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/picload/picload/internal/models"
	"github.com/picload/picload/pkg/logger"
)

// ObjectStore is the remote asset store surface the synchronizer needs.
type ObjectStore interface {
	Delete(ctx context.Context, filename string) error
}

// Directory is the user-directory surface the synchronizer needs. Both
// mutations are targeted list operations, safe under concurrent requests.
type Directory interface {
	AppendImages(ctx context.Context, id string, refs []models.ImageRef) (*models.User, error)
	RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error)
}

// OrphanRecorder persists filenames known to be unreferenced in the
// directory so an operator can reconcile them later. Best-effort.
type OrphanRecorder interface {
	Record(ctx context.Context, userID string, refs []models.ImageRef, reason string)
}

// RemoteStoreError reports the filenames whose remote delete failed.
// Their list entries are left in place so no reference ever points at
// an object that may still exist.
type RemoteStoreError struct {
	Failed []string
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("remote store delete failed for: %s", strings.Join(e.Failed, ", "))
}

// Synchronizer performs the two-sided add/remove of images between the
// user directory's reference list and the remote asset store.
type Synchronizer struct {
	dir     Directory
	store   ObjectStore
	orphans OrphanRecorder
}

// NewSynchronizer creates a synchronizer. orphans may be nil.
func NewSynchronizer(dir Directory, store ObjectStore, orphans OrphanRecorder) *Synchronizer {
	return &Synchronizer{dir: dir, store: store, orphans: orphans}
}

// Attach appends already-stored objects to the user's image list in
// arrival order, in one directory update. When the update fails the
// remote objects are not rolled back; they are recorded as orphan
// candidates and the error is surfaced to the caller.
func (s *Synchronizer) Attach(ctx context.Context, userID string, refs []models.ImageRef) (*models.User, error) {
	u, err := s.dir.AppendImages(ctx, userID, refs)
	if err != nil {
		logger.Errorf("attach: list update failed for user %s, %d remote object(s) may be orphaned: %v", userID, len(refs), err)
		if s.orphans != nil {
			s.orphans.Record(context.WithoutCancel(ctx), userID, refs, "append failed: "+err.Error())
		}
		return nil, err
	}
	return u, nil
}

// Remove deletes the requested objects from the remote store, each
// awaited to completion, then pulls the successfully deleted filenames
// from the user's image list in one update. Filenames whose remote
// delete failed keep their list entry and are reported via
// RemoteStoreError. Remote calls and the list update are detached from
// request cancellation: once issued, a batch runs to completion so a
// client disconnect cannot leave the two stores mismatched.
func (s *Synchronizer) Remove(ctx context.Context, userID string, filenames []string) (*models.User, error) {
	dctx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	failed := make([]string, 0)
	deleted := make([]string, 0, len(filenames))

	var wg sync.WaitGroup
	for _, fn := range filenames {
		wg.Add(1)
		go func(fn string) {
			defer wg.Done()
			if err := s.store.Delete(dctx, fn); err != nil {
				logger.Warnf("remove: remote delete failed for %s: %v", fn, err)
				mu.Lock()
				failed = append(failed, fn)
				mu.Unlock()
				return
			}
			mu.Lock()
			deleted = append(deleted, fn)
			mu.Unlock()
		}(fn)
	}
	wg.Wait()

	var u *models.User
	if len(deleted) > 0 {
		var err error
		u, err = s.dir.RemoveImagesByFilename(dctx, userID, deleted)
		if err != nil {
			// remote objects are gone but references remain; dangling
			// refs are detectable on next access, so surface and move on
			logger.Errorf("remove: list update failed for user %s after %d remote delete(s): %v", userID, len(deleted), err)
			return nil, err
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return u, &RemoteStoreError{Failed: failed}
	}
	return u, nil
}

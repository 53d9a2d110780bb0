package users

import (
	"context"
	"sync"
	"time"

	"github.com/picload/picload/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is an in-memory UserRepository used by unit tests.
// It mirrors the Mongo repository's semantics, including the atomic
// duplicate-filename guard on AppendImages.
type MemoryRepository struct {
	mu    sync.Mutex
	store map[string]*models.User
	byEml map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*models.User{}, byEml: map[string]string{}}
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Images = append([]models.ImageRef(nil), u.Images...)
	return &cp
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEml[u.Email]; ok {
		return nil, ErrDuplicateEmail
	}
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Images == nil {
		u.Images = []models.ImageRef{}
	}
	m.store[u.ID] = cloneUser(u)
	m.byEml[u.Email] = u.ID
	return cloneUser(u), nil
}

func (m *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEml[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(m.store[id]), nil
}

func (m *MemoryRepository) AppendImages(ctx context.Context, id string, refs []models.ImageRef) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	existing := map[string]bool{}
	for _, img := range u.Images {
		existing[img.Filename] = true
	}
	// marking as we go also catches a filename repeated within the batch
	for _, ref := range refs {
		if existing[ref.Filename] {
			return nil, ErrDuplicateFilename
		}
		existing[ref.Filename] = true
	}
	u.Images = append(u.Images, refs...)
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (m *MemoryRepository) RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	drop := map[string]bool{}
	for _, fn := range filenames {
		drop[fn] = true
	}
	kept := u.Images[:0]
	for _, img := range u.Images {
		if !drop[img.Filename] {
			kept = append(kept, img)
		}
	}
	u.Images = kept
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nkrasnikov/tinyurl/internal/models"
)

// MemoryUserRepository is an in-memory UserRepository with the same error
// contract as GormUserRepository.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[uint]*models.User
	nextID uint
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[uint]*models.User),
		nextID: models.AnonymousUserID + 1,
	}
}

// Create inserts a user, rejecting duplicate emails.
func (m *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// GetByEmail returns a copy of the user with the given email.
func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// GetByID returns a copy of the user with the given id.
func (m *MemoryUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

// UpdateLastLogin records the latest login time.
func (m *MemoryUserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, exists := m.users[id]
	if !exists {
		return gorm.ErrRecordNotFound
	}
	login := at
	u.LastLoginAt = &login
	return nil
}

// EnsureAnonymousUser seeds the sentinel owner row; idempotent.
func (m *MemoryUserRepository) EnsureAnonymousUser(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[models.AnonymousUserID]; exists {
		return nil
	}
	m.users[models.AnonymousUserID] = &models.User{
		ID:       models.AnonymousUserID,
		Email:    models.AnonymousUserEmail,
		IsActive: true,
	}
	return nil
}

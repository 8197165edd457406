package user

import (
	"testing"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}))

	cfg := &config.Config{}
	cfg.Security.BcryptCost = 4
	return NewService(db, cfg)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Register(&RegisterRequest{
		Email:     "olena@example.com",
		Password:  "correct-horse",
		FirstName: "Olena",
		LastName:  "Kovalenko",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, "correct-horse", created.PasswordHash)

	logged, err := svc.Authenticate(&LoginRequest{Email: "olena@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginAt)

	_, err = svc.Authenticate(&LoginRequest{Email: "olena@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(&LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	req := &RegisterRequest{
		Email:     "olena@example.com",
		Password:  "correct-horse",
		FirstName: "Olena",
		LastName:  "Kovalenko",
	}
	_, err := svc.Register(req)
	require.NoError(t, err)

	_, err = svc.Register(req)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Register(&RegisterRequest{
		Email:     "olena@example.com",
		Password:  "correct-horse",
		FirstName: "Olena",
		LastName:  "Kovalenko",
	})
	require.NoError(t, err)

	require.NoError(t, svc.db.Model(created).Update("is_active", false).Error)

	_, err = svc.Authenticate(&LoginRequest{Email: "olena@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

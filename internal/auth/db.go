package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User is a row in the users table.
type User struct {
	Username     string `gorm:"primaryKey"`
	PasswordHash string `gorm:"not null"`
	Enabled      bool   `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime:milli"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:milli"`
}

// DBStore authenticates against users kept in SQLite.
type DBStore struct {
	db *gorm.DB
}

// OpenDB opens (creating if needed) the SQLite database at path and migrates
// the users table.
func OpenDB(path string) (*DBStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open users db: %w", err)
	}

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate users db: %w", err)
	}

	return &DBStore{db: db}, nil
}

// Close closes the underlying database.
func (s *DBStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser stores a new enabled user with a freshly hashed password.
func (s *DBStore) CreateUser(ctx context.Context, username, password string) error {
	hash, err := NewPasswordHash(password)
	if err != nil {
		return err
	}
	return s.createUserHash(ctx, username, hash)
}

func (s *DBStore) createUserHash(ctx context.Context, username, hash string) error {
	u := &User{Username: username, PasswordHash: hash, Enabled: true}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user %q: %w", username, err)
	}
	return nil
}

// SetEnabled enables or disables a user.
func (s *DBStore) SetEnabled(ctx context.Context, username string, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Update("enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("update user %q: %w", username, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update user %q: %w", username, gorm.ErrRecordNotFound)
	}
	return nil
}

// GetUser loads a user by name.
func (s *DBStore) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate verifies the pair and records the login time on success.
func (s *DBStore) Authenticate(ctx context.Context, username, password string) error {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verifyMiss(password)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup user %q: %w", username, err)
	}

	match, err := verifyPassword(u.PasswordHash, password)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	if !match {
		return ErrInvalidCredentials
	}
	if !u.Enabled {
		return ErrUserDisabled
	}

	if err := s.db.WithContext(ctx).Model(u).Update("last_login_at", time.Now()).Error; err != nil {
		return fmt.Errorf("record login for %q: %w", username, err)
	}
	return nil
}

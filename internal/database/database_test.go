package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	appconfig "github.com/GTDGit/dropaz_api/internal/config"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "drop", Password: "p@ss word", Name: "dropaz", SSLMode: "disable",
	})
	assert.Equal(t, "postgres://drop:p%40ss+word@db:5432/dropaz?sslmode=disable", dsn)
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(wrapped))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestConnect_NilConfig(t *testing.T) {
	_, err := Connect(nil)
	assert.Error(t, err)
}

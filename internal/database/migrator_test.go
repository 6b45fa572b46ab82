package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("nil database", func(t *testing.T) {
		_, err := NewMigrator(nil, "migrations", logger)
		assert.ErrorContains(t, err, "database is required")
	})

	t.Run("uninitialized pool", func(t *testing.T) {
		_, err := NewMigrator(&DB{}, "migrations", logger)
		assert.ErrorContains(t, err, "pool not initialized")
	})

	t.Run("missing migrations path", func(t *testing.T) {
		db := &DB{}
		_, err := NewMigrator(db, "", logger)
		assert.Error(t, err)
	})
}

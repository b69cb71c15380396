package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository(t *testing.T) {
	runContract(t, func(t *testing.T) Repository {
		return NewInMemoryRepository()
	})
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	school := fakeSchool()
	require.NoError(t, repo.CreateSchool(ctx, school))

	got, err := repo.GetSchool(ctx, school.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Tags[0] = "mutated"

	again, err := repo.GetSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Name)
	assert.Equal(t, []string{"public"}, again.Tags)
}

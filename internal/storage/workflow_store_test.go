package storage

import (
	"testing"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStore_SaveAssignsIDAndGetRoundTrips(t *testing.T) {
	s := NewWorkflowStore()
	id, err := s.Save(models.Workflow{TenantID: "tenant-a", Domain: "example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "tenant-a", got.TenantID)
}

func TestWorkflowStore_UpdateRejectsUnknownID(t *testing.T) {
	s := NewWorkflowStore()
	err := s.Update(models.Workflow{ID: "does-not-exist"})
	assert.Error(t, err)
}

func TestWorkflowStore_ListFiltersByTenantAndExcludesDeleted(t *testing.T) {
	s := NewWorkflowStore()
	idA, _ := s.Save(models.Workflow{TenantID: "tenant-a"})
	_, _ = s.Save(models.Workflow{TenantID: "tenant-b"})
	idC, _ := s.Save(models.Workflow{TenantID: "tenant-a"})

	require.NoError(t, s.Delete(idC))

	list := s.List("tenant-a")
	require.Len(t, list, 1)
	assert.Equal(t, idA, list[0].ID)
}

func TestWorkflowStore_DeleteIsSoftDelete(t *testing.T) {
	s := NewWorkflowStore()
	id, _ := s.Save(models.Workflow{TenantID: "tenant-a"})
	require.NoError(t, s.Delete(id))

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.True(t, got.Deleted)
}

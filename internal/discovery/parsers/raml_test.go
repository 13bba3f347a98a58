package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanRAML_ResourcesAndMethods(t *testing.T) {
	doc := []byte(`#%RAML 1.0
title: Example API
/users:
  get:
    description: list users
  post:
    description: create a user
/users/{id}:
  get:
    description: fetch one user
`)
	spec := scanRAML(doc)
	require.Len(t, spec.Endpoints, 3)
	assert.Equal(t, "GET", spec.Endpoints[0].Method)
	assert.Equal(t, "/users", spec.Endpoints[0].Path)
	assert.Equal(t, "POST", spec.Endpoints[1].Method)
	assert.Equal(t, "/users/{id}", spec.Endpoints[2].Path)
}

func TestScanRAML_NoResources(t *testing.T) {
	spec := scanRAML([]byte("#%RAML 1.0\ntitle: Empty\n"))
	assert.Empty(t, spec.Endpoints)
}

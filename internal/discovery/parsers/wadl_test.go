package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWADL_NestedResources(t *testing.T) {
	doc := `<application>
  <resources base="https://api.example.com">
    <resource path="users">
      <method name="GET"/>
      <resource path="{id}">
        <method name="GET"/>
        <method name="DELETE"/>
      </resource>
    </resource>
  </resources>
</application>`

	endpoints := scanWADL(doc)
	require.Len(t, endpoints, 3)
	assert.Equal(t, "/users", endpoints[0].Path)
	assert.Equal(t, "GET", endpoints[0].Method)
	assert.Equal(t, "/users/{id}", endpoints[1].Path)
	assert.Equal(t, "GET", endpoints[1].Method)
	assert.Equal(t, "/users/{id}", endpoints[2].Path)
	assert.Equal(t, "DELETE", endpoints[2].Method)
}

func TestScanWADL_SelfClosingResourceHasNoChildren(t *testing.T) {
	doc := `<application>
  <resources>
    <resource path="ping"/>
    <resource path="users">
      <method name="GET"/>
    </resource>
  </resources>
</application>`

	endpoints := scanWADL(doc)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "/users", endpoints[0].Path)
}

func TestScanWADL_NoMethods(t *testing.T) {
	endpoints := scanWADL(`<application><resources></resources></application>`)
	assert.Empty(t, endpoints)
}

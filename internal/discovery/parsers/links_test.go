package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkHeader(t *testing.T) {
	header := `<https://api.example.com/items?page=2>; rel="next", <https://api.example.com/items?page=1>; rel="previous"; type="application/json"`
	rels := parseLinkHeader(header)
	require.Len(t, rels, 2)
	assert.Equal(t, "next", rels[0].Rel)
	assert.Equal(t, "https://api.example.com/items?page=2", rels[0].Href)
	assert.Equal(t, "prev", rels[1].Rel, "previous is normalized to prev")
	assert.Equal(t, "application/json", rels[1].Type)
}

func TestParseLinkHeader_Empty(t *testing.T) {
	assert.Nil(t, parseLinkHeader(""))
}

func TestDetectHypermediaRelations_HAL(t *testing.T) {
	body := map[string]any{
		"_links": map[string]any{
			"self": map[string]any{"href": "/orders/1"},
			"next": map[string]any{"href": "/orders?page=2"},
		},
	}
	rels := detectHypermediaRelations(body)
	assert.Len(t, rels, 2)
}

func TestDetectHypermediaRelations_JSONAPI(t *testing.T) {
	body := map[string]any{
		"data":  map[string]any{"type": "orders", "id": "1"},
		"links": map[string]any{"self": "/orders/1", "next": "/orders?page=2"},
	}
	rels := detectHypermediaRelations(body)
	assert.Len(t, rels, 2)
}

func TestDetectHypermediaRelations_Siren(t *testing.T) {
	body := map[string]any{
		"class": []any{"order"},
		"links": []any{
			map[string]any{"rel": []any{"self"}, "href": "/orders/1"},
		},
	}
	rels := detectHypermediaRelations(body)
	require.Len(t, rels, 1)
	assert.Equal(t, "self", rels[0].Rel)
}

func TestDetectHypermediaRelations_Hydra(t *testing.T) {
	body := map[string]any{
		"@context": "http://www.w3.org/ns/hydra/context.jsonld",
		"hydra:view": map[string]any{
			"next": "/orders?page=2",
		},
	}
	rels := detectHypermediaRelations(body)
	require.Len(t, rels, 1)
	assert.Equal(t, "/orders?page=2", rels[0].Href)
}

func TestDetectHypermediaRelations_Unrecognized(t *testing.T) {
	assert.Nil(t, detectHypermediaRelations(map[string]any{"foo": "bar"}))
	assert.Nil(t, detectHypermediaRelations("not a map"))
}

package renderer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightweightRenderer_ExtractsTitleTextAndTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Visa Fees</title></head><body>
			<p>Standard visa fee is 160 USD.</p>
			<table><thead><tr><th>Type</th><th>Fee</th></tr></thead>
			<tbody><tr><td>Tourist</td><td>160</td></tr></tbody></table>
		</body></html>`))
	}))
	defer srv.Close()

	r := NewLightweightRenderer(srv.Client())
	out, err := r.Render(context.Background(), srv.URL, models.Session{})
	require.NoError(t, err)

	assert.Equal(t, "Visa Fees", out.Title)
	assert.Contains(t, out.Text, "Standard visa fee is 160 USD")
	require.Len(t, out.Tables, 1)
	assert.Equal(t, []string{"Type", "Fee"}, out.Tables[0].Headers)
	assert.Equal(t, [][]string{{"Tourist", "160"}}, out.Tables[0].Rows)
	require.Len(t, out.NetworkLog, 1)
	assert.Equal(t, 200, out.NetworkLog[0].ResponseStatus)
}

func TestLightweightRenderer_NonHTMLPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	r := NewLightweightRenderer(srv.Client())
	out, err := r.Render(context.Background(), srv.URL, models.Session{})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out.Text)
}

func TestPlaywrightRenderer_Unavailable(t *testing.T) {
	p := NewPlaywrightRenderer()
	_, err := p.Render(context.Background(), "https://example.com", models.Session{})
	assert.ErrorIs(t, err, ErrRendererUnavailable)
}

func TestRegistry_ForUnknownTier(t *testing.T) {
	reg := NewRegistry(NewLightweightRenderer(nil), NewPlaywrightRenderer())
	_, ok := reg.For(models.TierIntelligence)
	assert.False(t, ok)

	rd, ok := reg.For(models.TierLightweight)
	assert.True(t, ok)
	assert.Equal(t, models.TierLightweight, rd.Tier())
}

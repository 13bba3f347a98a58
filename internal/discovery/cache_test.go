package discovery

import (
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCache_PutGet(t *testing.T) {
	c := NewCache(time.Hour, nil)
	result := models.DiscoveryResult{Source: models.SourceOpenAPI, Domain: "example.com", Found: true}
	c.Put("tenant-a", models.SourceOpenAPI, "example.com", result)

	got, ok := c.Get("tenant-a", models.SourceOpenAPI, "example.com")
	assert.True(t, ok)
	assert.True(t, got.Found)

	_, ok = c.Get("tenant-b", models.SourceOpenAPI, "example.com")
	assert.False(t, ok, "cache entries are isolated per tenant")
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Millisecond, nil)
	c.Put("t", models.SourceOpenAPI, "example.com", models.DiscoveryResult{Found: true})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("t", models.SourceOpenAPI, "example.com")
	assert.False(t, ok)
}

func TestCache_CooldownSchedule(t *testing.T) {
	c := NewCache(time.Hour, []time.Duration{10 * time.Millisecond, 50 * time.Millisecond})

	assert.False(t, c.InCooldown("t", models.SourceGraphQL, "x.com"))

	c.RecordFailure("t", models.SourceGraphQL, "x.com")
	assert.True(t, c.InCooldown("t", models.SourceGraphQL, "x.com"))
	time.Sleep(15 * time.Millisecond)
	assert.False(t, c.InCooldown("t", models.SourceGraphQL, "x.com"))

	// Further failures advance to the schedule's longer last entry, where
	// the cooldown stays capped.
	c.RecordFailure("t", models.SourceGraphQL, "x.com")
	c.RecordFailure("t", models.SourceGraphQL, "x.com")
	assert.True(t, c.InCooldown("t", models.SourceGraphQL, "x.com"))
}

func TestCache_RecordSuccessClearsCooldown(t *testing.T) {
	c := NewCache(time.Hour, []time.Duration{time.Hour})
	c.RecordFailure("t", models.SourceWADL, "x.com")
	assert.True(t, c.InCooldown("t", models.SourceWADL, "x.com"))

	c.RecordSuccess("t", models.SourceWADL, "x.com")
	assert.False(t, c.InCooldown("t", models.SourceWADL, "x.com"))
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/models"
)

type countingFetcher struct {
	calls int
	err   error
}

func (f *countingFetcher) FetchProfile(_ context.Context, profileURL string) (*models.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Profile{Username: "lojaxyz", Followers: 10, ProfileURL: profileURL}, nil
}

func newTestCache(t *testing.T, max int) (*Cache, *time.Time) {
	c := New(max, time.Hour)
	t.Cleanup(c.Stop)
	clock := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCache_GetSetExpiry(t *testing.T) {
	c, clock := newTestCache(t, 10)

	c.Set("LojaXYZ", &models.Profile{Username: "lojaxyz"})
	p, ok := c.Get("lojaxyz")
	require.True(t, ok)
	assert.Equal(t, "lojaxyz", p.Username)

	p.Username = "mutated"
	p2, _ := c.Get("lojaxyz")
	assert.Equal(t, "lojaxyz", p2.Username)

	*clock = clock.Add(2 * time.Hour)
	_, ok = c.Get("lojaxyz")
	assert.False(t, ok)
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Set("a", &models.Profile{})
	c.Set("b", &models.Profile{})
	c.Set("b", &models.Profile{})
	assert.Equal(t, 2, c.Len())
	c.Set("c", &models.Profile{})
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestFetcher_CachesSuccessOnly(t *testing.T) {
	c, _ := newTestCache(t, 10)
	inner := &countingFetcher{}
	f := NewFetcher(inner, c)
	ctx := context.Background()

	_, err := f.FetchProfile(ctx, "https://www.instagram.com/lojaxyz/?hl=pt")
	require.NoError(t, err)
	p, err := f.FetchProfile(ctx, "https://www.instagram.com/LojaXYZ/")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Followers)
	assert.Equal(t, 1, inner.calls)

	failing := &countingFetcher{err: errors.New("login wall")}
	f = NewFetcher(failing, c)
	_, err = f.FetchProfile(ctx, "https://www.instagram.com/other/")
	require.Error(t, err)
	_, err = f.FetchProfile(ctx, "https://www.instagram.com/other/")
	require.Error(t, err)
	assert.Equal(t, 2, failing.calls)
}

package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photolog-backend/internal/models"
	"photolog-backend/internal/permissions"
)

func fixedSource(lat, lon float64) Source {
	return SourceFunc(func(ctx context.Context, _ Options) (models.Position, error) {
		return models.Position{Coordinates: models.Coordinates{Latitude: lat, Longitude: lon}}, nil
	})
}

func TestCurrentReturnsFix(t *testing.T) {
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	p := NewProvider(fixedSource(-6.2, 106.8), perms, "android", 33)

	coords, err := p.Current(context.Background(), Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, -6.2, coords.Latitude)
	assert.Equal(t, 106.8, coords.Longitude)
}

func TestCurrentPermissionDenied(t *testing.T) {
	perms := permissions.NewStatic(nil)
	p := NewProvider(fixedSource(1, 2), perms, "android", 33)

	_, err := p.Current(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLegacyAndroidSkipsPermissionCheck(t *testing.T) {
	// No permission granted, but API level 22 predates runtime permissions.
	perms := permissions.NewStatic(nil)
	p := NewProvider(fixedSource(1, 2), perms, "android", 22)

	coords, err := p.Current(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, coords.Latitude)
}

func TestCurrentTimeout(t *testing.T) {
	slow := SourceFunc(func(ctx context.Context, _ Options) (models.Position, error) {
		select {
		case <-ctx.Done():
			return models.Position{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return models.Position{}, nil
		}
	})
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	p := NewProvider(slow, perms, "ios", 17)

	_, err := p.Current(context.Background(), Options{Timeout: 20 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCurrentUnavailable(t *testing.T) {
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	p := NewProvider(NewReportedStore().SourceFor("dev-1"), perms, "ios", 17)

	_, err := p.Current(context.Background(), Options{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCurrentUsesCachedFixWithinMaxAge(t *testing.T) {
	calls := 0
	source := SourceFunc(func(ctx context.Context, _ Options) (models.Position, error) {
		calls++
		return models.Position{Coordinates: models.Coordinates{Latitude: float64(calls)}}, nil
	})
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	p := NewProvider(source, perms, "ios", 17)

	opts := Options{MaxAge: time.Minute}
	first, err := p.Current(context.Background(), opts)
	require.NoError(t, err)
	second, err := p.Current(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestReportedStorePerDevice(t *testing.T) {
	store := NewReportedStore()
	store.Report("a", models.Position{Coordinates: models.Coordinates{Latitude: 10}})
	store.Report("b", models.Position{Coordinates: models.Coordinates{Latitude: 20}})

	pos, err := store.SourceFor("a").CurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, pos.Latitude)

	_, err = store.SourceFor("c").CurrentPosition(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoFix)
}

func TestRegistryReusesProviders(t *testing.T) {
	store := NewReportedStore()
	perms := permissions.NewStatic([]string{permissions.FineLocation})
	lookups := 0
	reg := NewRegistry(store, perms, func(ctx context.Context, deviceID string) (string, int, error) {
		lookups++
		return "android", 33, nil
	})

	p1, err := reg.For(context.Background(), "dev-1")
	require.NoError(t, err)
	p2, err := reg.For(context.Background(), "dev-1")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, lookups)
}

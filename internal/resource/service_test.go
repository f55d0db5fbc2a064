package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog() Service {
	return NewService(NewMemoryRepository(
		&Resource{ID: "m3", Name: "Saw", Status: StatusRetired, DisplayOrder: 3},
		&Resource{ID: "m1", Name: "Lathe", Status: StatusAvailable, DisplayOrder: 1},
		&Resource{ID: "m2", Name: "Mill", Status: StatusMaintenance, DisplayOrder: 1},
		&Resource{ID: "m4", Name: "Drill", DisplayOrder: 2},
	))
}

func TestGetByID(t *testing.T) {
	svc := newCatalog()

	r, err := svc.GetByID(context.Background(), "m4")
	require.NoError(t, err)
	assert.Equal(t, "Drill", r.Name)
	assert.Equal(t, StatusAvailable, r.Status, "seeded without a status")
	assert.True(t, r.Bookable())

	_, err = svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderAndPaging(t *testing.T) {
	svc := newCatalog()
	ctx := context.Background()

	all, total, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Lathe", "Mill", "Drill", "Saw"}, names)

	page, total, err := svc.List(ctx, Filter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Saw", page[0].Name)
}

func TestListByStatus(t *testing.T) {
	svc := newCatalog()

	items, total, err := svc.List(context.Background(), Filter{Status: StatusAvailable})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, r := range items {
		assert.True(t, r.Bookable())
	}

	_, _, err = svc.List(context.Background(), Filter{Status: "broken"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOnlyAvailableIsBookable(t *testing.T) {
	for _, s := range ValidStatuses {
		r := &Resource{Status: s}
		assert.Equal(t, s == StatusAvailable, r.Bookable(), s)
	}
}

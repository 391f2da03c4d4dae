package specialty_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

func settingsAdmin() auth.Actor {
	return auth.Actor{ID: uuid.New(), Role: identity.RoleAdmin, Active: true, Permissions: []string{identity.PermManageSettings}}
}

func TestCreateAndListActive(t *testing.T) {
	svc := specialty.NewService(memstore.NewSpecialties(), zerolog.Nop())
	ctx := context.Background()
	admin := settingsAdmin()

	cardio, err := svc.Create(ctx, admin, specialty.Input{Name: "  Cardiology ", DisplayOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", cardio.Name)
	assert.True(t, cardio.IsActive)

	_, err = svc.Create(ctx, admin, specialty.Input{Name: "Dermatology", DisplayOrder: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, specialty.Input{Name: "cardiology"})
	assert.ErrorIs(t, err, specialty.ErrNameTaken)

	hidden := false
	_, err = svc.Update(ctx, admin, cardio.ID, specialty.Patch{IsActive: &hidden})
	require.NoError(t, err)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Dermatology", active[0].Name)

	got, err := svc.Get(ctx, cardio.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestWritesRequireManageSettings(t *testing.T) {
	svc := specialty.NewService(memstore.NewSpecialties(), zerolog.Nop())
	ctx := context.Background()

	other := auth.Actor{ID: uuid.New(), Role: identity.RoleAdmin, Active: true, Permissions: []string{identity.PermManageUsers}}
	_, err := svc.Create(ctx, other, specialty.Input{Name: "Oncology"})
	assert.ErrorIs(t, err, auth.ErrForbiddenPermission)

	patient := auth.Actor{ID: uuid.New(), Role: identity.RolePatient, Active: true}
	_, err = svc.Create(ctx, patient, specialty.Input{Name: "Oncology"})
	assert.ErrorIs(t, err, auth.ErrForbiddenRole)

	sp, err := svc.Create(ctx, settingsAdmin(), specialty.Input{Name: "Oncology"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, other, sp.ID), auth.ErrForbiddenPermission)
	require.NoError(t, svc.Delete(ctx, settingsAdmin(), sp.ID))
	assert.ErrorIs(t, svc.Delete(ctx, settingsAdmin(), sp.ID), specialty.ErrNotFound)
}

func TestCreateValidates(t *testing.T) {
	svc := specialty.NewService(memstore.NewSpecialties(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, settingsAdmin(), specialty.Input{Name: "   "})
	assert.ErrorIs(t, err, specialty.ErrValidation)

	long := make([]byte, specialty.MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Create(ctx, settingsAdmin(), specialty.Input{Name: "Neurology", Description: string(long)})
	assert.ErrorIs(t, err, specialty.ErrValidation)

	empty := ""
	_, err = svc.Update(ctx, settingsAdmin(), uuid.New(), specialty.Patch{Name: &empty})
	assert.ErrorIs(t, err, specialty.ErrValidation)
}

package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/config"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:           "test",
		StoreDriver:   "memory",
		JWTSecret:     "app-secret",
		JWTIssuer:     "clinic-test",
		JWTTTL:        time.Hour,
		BcryptCost:    4,
		EmailProvider: "stub",
		SlotDayStart:  "09:00",
		SlotDayEnd:    "12:00",
		SlotStep:      time.Hour,
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pool)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Pinger())
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, a.Appointments.Slots().Labels())
	require.NotNil(t, a.Auth)
	require.NotNil(t, a.Guard)
	require.NotNil(t, a.Specialties)
}

func TestNewWithRedisLocks(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisLocks = true
	cfg.RedisAddr = mr.Addr()
	cfg.LockTTL = time.Second

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Redis)
}

func TestNewRejectsBadSlotWindow(t *testing.T) {
	cfg := memoryConfig()
	cfg.SlotDayStart = "18:00"
	cfg.SlotDayEnd = "08:00"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewSendGridNeedsKey(t *testing.T) {
	cfg := memoryConfig()
	cfg.EmailProvider = "sendgrid"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

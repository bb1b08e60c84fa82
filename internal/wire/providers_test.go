package wire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantlink/internal/config"
	"tenantlink/internal/logger"
	"tenantlink/internal/notif"
)

func TestOptionalProviders_YieldNilInterfaces(t *testing.T) {
	cfg := &config.Config{}
	log := logger.NewNop()

	fcm, err := ProvideFCMClient(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.True(t, fcm == nil)

	pub, cleanup, err := ProvidePublisher(cfg, log)
	require.NoError(t, err)
	assert.True(t, pub == nil)
	cleanup()

	mc, cleanup, err := ProvideMongo(cfg, log)
	require.NoError(t, err)
	assert.Nil(t, mc)
	cleanup()

	dl, err := ProvideDeliveryLog(context.Background(), cfg, mc)
	require.NoError(t, err)
	assert.True(t, ProvideRecorder(dl) == nil)
	assert.True(t, ProvideHistory(dl) == nil)
}

func TestProvideTransports(t *testing.T) {
	log := logger.NewNop()
	push := notif.NewExpoTransport(config.PushConfig{})

	off := ProvideTransports(&config.Config{}, push, log)
	assert.True(t, off.Email == nil)
	assert.True(t, off.SMS == nil)

	on := ProvideTransports(&config.Config{
		Email: config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.com"},
		SMS:   config.SMSConfig{Enabled: true},
	}, push, log)
	assert.NotNil(t, on.Email)
	assert.NotNil(t, on.SMS)
	assert.Equal(t, push, on.Push)
}

func TestInitializeApplication_SQLite(t *testing.T) {
	cfg := &config.Config{
		Server:       config.ServerConfig{AutoMigrate: true, Environment: "test"},
		Database:     config.DatabaseConfig{Driver: "sqlite", MaxOpenConns: 1, MaxIdleConns: 1},
		Push:         config.PushConfig{Provider: "expo", ExpoURL: "http://127.0.0.1:1"},
		Notification: config.NotificationConfig{Enabled: true},
		Logging:      config.LoggingConfig{Level: "error", OutputPath: "stderr"},
	}

	app, cleanup, err := InitializeApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, app.Chat)
	assert.NotNil(t, app.Maintenance)
	assert.NotNil(t, app.Notifications)
	assert.NotNil(t, app.Users)
	assert.True(t, app.DB.Migrator().HasTable("maintenance_requests"))
}

func TestInitializeApplication_UnknownPushProvider(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", MaxOpenConns: 1, MaxIdleConns: 1},
		Push:     config.PushConfig{Provider: "carrier-pigeon"},
		Logging:  config.LoggingConfig{Level: "error", OutputPath: "stderr"},
	}
	_, _, err := InitializeApplication(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown push provider")
}

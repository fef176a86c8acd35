package service

import (
	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/config"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func notificationConfig() config.NotificationConfig {
	return config.NotificationConfig{
		EmailFrom:       "noreply@peoplehub.test",
		FrontendBaseURL: "https://hr.peoplehub.test/",
	}
}

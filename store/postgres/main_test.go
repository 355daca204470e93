package postgres

import (
	"os"
	"testing"

	"github.com/TripAtlas/trip-atlas-backend/logger"
)

func TestMain(m *testing.M) {
	logger.IsTest = true
	logger.InitLogger()

	code := m.Run()

	logger.Close()
	os.Exit(code)
}

package db

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"liyu1981.xyz/llm-cost-service/pkg/common"
)

func TestWithEnvPath(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	testPath := filepath.Join(t.TempDir(), "nested", "test.db")

	t.Setenv(common.EnvKeyDbPath, testPath)

	// the singleton is shared with the memory tests, so open the file directly
	dialector := UseSqliteDialector()
	conn, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Expected database to open: %v", err)
	}
	if err := conn.Exec("CREATE TABLE probe (id INTEGER)").Error; err != nil {
		t.Fatalf("Expected to write to database: %v", err)
	}

	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", testPath)
	}
}

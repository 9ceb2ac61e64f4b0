// Package testing is imported for its side effects by test files:
//
//	import (
//	  _ "liyu1981.xyz/llm-cost-service/pkg/testing"
//	)
//
// It moves the working directory to the repository root so relative paths
// (testdata, .env) resolve the same way from every package, and sends the
// rotating log file to a temp dir.
package testing

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
)

// keep in sync with common.EnvKeyLogDir, importing common here would cycle
const envKeyLogDir = "COSTMETER_LOG_DIR"

func init() {
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}

	if _, found := os.LookupEnv(envKeyLogDir); !found {
		_ = os.Setenv(envKeyLogDir, filepath.Join(os.TempDir(), "costmeter-test-logs"))
	}
}

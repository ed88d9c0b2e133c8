package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("WAREHOUSE_TEST_MODE", "1")
		defaults := map[string]string{
			"API_BASE_URL":   "http://127.0.0.1:0",
			"SESSION_SECRET": "test-session-secret",
			"CSRF_SECRET":    "test-csrf-secret",
		}
		for key, value := range defaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

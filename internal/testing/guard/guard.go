// Package guard forces test mode for packages that import it.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TASKKEEPER_TEST_MODE") == "" {
			_ = os.Setenv("TASKKEEPER_TEST_MODE", "1")
		}
	})
}

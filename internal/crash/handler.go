package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"bantrap/internal/logger"
)

// Recover logs a recovered panic with its stack trace and reports whether
// one happened. It must be called directly from a deferred function.
func Recover(moduleName string, r interface{}) bool {
	if r == nil {
		return false
	}
	stack := debug.Stack()

	logger.Errorf("PANIC in %s: %v", moduleName, r)
	logger.Errorf("Stack trace:\n%s", string(stack))

	// container logs may not include the rotating file
	fmt.Fprintf(os.Stderr, "[PANIC] %s - %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), moduleName, r)

	logRuntimeInfo()
	return true
}

// RecoverWithStack recovers a panic in the calling goroutine and logs it.
func RecoverWithStack(moduleName string) {
	Recover(moduleName, recover())
}

// RecoverWithStackAndExit is the panic handler for main: log, flush, exit 1.
func RecoverWithStackAndExit(moduleName string) {
	if Recover(moduleName, recover()) {
		// give the log writer a moment to flush to disk
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}

// SafeGoroutine runs fn in a new goroutine that cannot take the process down.
func SafeGoroutine(name string, fn func()) {
	go func() {
		defer RecoverWithStack(fmt.Sprintf("goroutine-%s", name))
		fn()
	}()
}

func logRuntimeInfo() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logger.Errorf("Runtime: go=%s cpus=%d goroutines=%d heap_alloc=%dKB heap_inuse=%dKB num_gc=%d",
		runtime.Version(),
		runtime.NumCPU(),
		runtime.NumGoroutine(),
		bToKb(m.HeapAlloc),
		bToKb(m.HeapInuse),
		m.NumGC,
	)
}

func bToKb(b uint64) uint64 {
	return b / 1024
}

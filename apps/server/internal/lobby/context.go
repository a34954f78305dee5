package lobby

import "sync"

// AppContext is the process-wide context carrying the game manager.
// It is initialised lazily on first use and lives until process exit.
type AppContext struct {
	manager *Manager
}

func (c *AppContext) Manager() *Manager { return c.manager }

var (
	globalCtx  *AppContext
	globalOnce sync.Once
)

// Context returns the singleton AppContext.
func Context() *AppContext {
	globalOnce.Do(func() {
		globalCtx = &AppContext{manager: New()}
	})
	return globalCtx
}

package keys

import "sync"

var (
	globalOnce   sync.Once
	globalBundle *WellKnownBundle
	globalErr    error
)

// InitGlobal loads the well-known key bundle exactly once per process and
// stores it for Global to retrieve. Calling it more than once is safe; only
// the first call's bundlePath takes effect.
func InitGlobal(bundlePath string) error {
	globalOnce.Do(func() {
		globalBundle, globalErr = LoadOrCreateBundle(bundlePath)
	})
	return globalErr
}

// InitGlobalEncrypted is InitGlobal's passphrase-protected counterpart,
// for deployments that set identity.bundle_passphrase in their config
// (§6, internal/xcrypto).
func InitGlobalEncrypted(bundlePath, passphrase string) error {
	globalOnce.Do(func() {
		globalBundle, globalErr = LoadOrCreateEncryptedBundle(bundlePath, passphrase)
	})
	return globalErr
}

// Global returns the process-wide well-known key bundle. It panics if
// InitGlobal has not been called successfully first, since every role
// depends on these keys to interpret transactions.
func Global() *WellKnownBundle {
	if globalBundle == nil {
		panic("keys: Global() called before InitGlobal() succeeded")
	}
	return globalBundle
}

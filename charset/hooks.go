package charset

import (
	"strings"
	"sync"
)

// Hook registries. charset-hook repairs charset labels found in messages;
// iconv-hook renames a canonical charset to whatever the local converter
// knows it by.
var (
	hookMu       sync.RWMutex
	charsetHooks = map[string]string{}
	iconvHooks   = map[string]string{}
)

// AddCharsetHook registers an alias for a badly labelled incoming charset.
func AddCharsetHook(alias, charset string) {
	hookMu.Lock()
	defer hookMu.Unlock()
	charsetHooks[strings.ToLower(alias)] = charset
}

// AddIconvHook registers a local converter name for a canonical charset.
func AddIconvHook(charset, local string) {
	hookMu.Lock()
	defer hookMu.Unlock()
	iconvHooks[strings.ToLower(charset)] = local
}

// LookupCharset returns the charset-hook target for a label, if any.
func LookupCharset(name string) (string, bool) {
	hookMu.RLock()
	defer hookMu.RUnlock()
	v, ok := charsetHooks[strings.ToLower(name)]
	return v, ok
}

// LookupIconv returns the iconv-hook target for a label, if any.
func LookupIconv(name string) (string, bool) {
	hookMu.RLock()
	defer hookMu.RUnlock()
	v, ok := iconvHooks[strings.ToLower(name)]
	return v, ok
}

// ClearHooks drops all registered hooks.
func ClearHooks() {
	hookMu.Lock()
	defer hookMu.Unlock()
	charsetHooks = map[string]string{}
	iconvHooks = map[string]string{}
}

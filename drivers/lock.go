package drivers

import (
	"strings"
	"sync"
)

// accountLocks serialises submissions per sending account across every
// driver in the process.
var accountLocks sync.Map

func accountKey(family, network, address string) string {
	return family + ":" + network + ":" + strings.ToLower(address)
}

// lockAccount blocks until the account is free and returns the release func.
func lockAccount(key string) func() {
	v, _ := accountLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

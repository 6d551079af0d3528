// Package iocache persists blame attributions and authorship run history.
package iocache

import (
	"sync"

	"github.com/huangsam/pulse/internal/contract"
)

// CacheStoreManager manages the blame cache and the run history store.
// Either store may be nil when its backend is disabled.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	blame        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetBlameStore returns the blame attribution CacheStore.
func (mgr *CacheStoreManager) GetBlameStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.blame
}

// GetHistoryStore returns the run HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}

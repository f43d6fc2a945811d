package ws

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

type sessionInfo struct {
	role   string
	userID *int64
}

type adminSet = *xsync.MapOf[int64, struct{}]

// WatchRegistry tracks live sessions and which admins watch which customers.
// Mutations of one customer's watcher set are serialized through the outer
// map's per-key Compute, so an emptied set can be dropped without losing a
// concurrent Watch.
type WatchRegistry struct {
	sessions *xsync.MapOf[string, sessionInfo]
	watchers *xsync.MapOf[int64, adminSet]
}

// NewWatchRegistry returns an empty registry.
func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{
		sessions: xsync.NewMapOf[string, sessionInfo](),
		watchers: xsync.NewMapOf[int64, adminSet](),
	}
}

// RegisterSession records or replaces the metadata of a session.
func (r *WatchRegistry) RegisterSession(sessionID, role string, userID *int64) {
	if sessionID == "" {
		return
	}
	r.sessions.Store(sessionID, sessionInfo{role: role, userID: userID})
}

// UnregisterSession forgets the session. When it belonged to an admin, that
// admin stops watching every customer.
func (r *WatchRegistry) UnregisterSession(sessionID string) {
	if sessionID == "" {
		return
	}
	info, ok := r.sessions.LoadAndDelete(sessionID)
	if !ok || info.role != "admin" || info.userID == nil {
		return
	}
	adminID := *info.userID
	r.watchers.Range(func(customerID int64, _ adminSet) bool {
		r.watchers.Compute(customerID, func(set adminSet, loaded bool) (adminSet, bool) {
			if !loaded {
				return set, true
			}
			set.Delete(adminID)
			return set, set.Size() == 0
		})
		return true
	})
}

// Watch adds adminID to the watchers of customerID. Nil ids are ignored.
func (r *WatchRegistry) Watch(adminID, customerID *int64) {
	if adminID == nil || customerID == nil {
		return
	}
	admin := *adminID
	r.watchers.Compute(*customerID, func(set adminSet, loaded bool) (adminSet, bool) {
		if !loaded {
			set = xsync.NewMapOf[int64, struct{}]()
		}
		set.Store(admin, struct{}{})
		return set, false
	})
}

// GetAdmins returns a sorted snapshot of the admins watching customerID.
// The result is never nil.
func (r *WatchRegistry) GetAdmins(customerID int64) []int64 {
	admins := []int64{}
	set, ok := r.watchers.Load(customerID)
	if !ok {
		return admins
	}
	set.Range(func(adminID int64, _ struct{}) bool {
		admins = append(admins, adminID)
		return true
	})
	sort.Slice(admins, func(i, j int) bool { return admins[i] < admins[j] })
	return admins
}

// SessionCount returns the number of registered sessions.
func (r *WatchRegistry) SessionCount() int {
	return r.sessions.Size()
}

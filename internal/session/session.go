package session

import (
	"github.com/google/uuid"

	"coldb/internal/catalog"
	"coldb/internal/scan"
)

// pendingSelect is one select diverted into the batch queue while batching
// is active (§4.6 step 1).
type pendingSelect struct {
	handle    string
	dbName    string
	tableName string
	colName   string
	low, high int32
}

// Session is one client connection's state: it owns a handle table and
// the batching state, scoped per connection rather than kept as process
// globals so multiple clients can be served without interfering with each
// other. Bulk-load state is not per session: it is catalog.Table's
// BulkLoading flag, shared by every session.
type Session struct {
	ID uuid.UUID

	Catalog *catalog.Catalog

	handles *HandleTable

	batching bool
	queued   []pendingSelect

	ScanOptions scan.Options
}

// New returns a fresh session bound to cat, tagged with a random id for
// logging and for scoping its handle table.
func New(cat *catalog.Catalog) *Session {
	return &Session{
		ID:      uuid.New(),
		Catalog: cat,
		handles: NewHandleTable(),
	}
}

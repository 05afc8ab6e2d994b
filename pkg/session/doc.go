// Package session provides the persistent key/value store used by the link
// dispatcher.
//
// The dispatcher remembers the link a user opened before it sent them to sign
// in, so the link can be resumed afterwards:
//
//	store.Set(ctx, session.PendingLinkKey, "waqiti://pay/m1?amount=5")
//	// ... user authenticates ...
//	url, ok, err := store.Get(ctx, session.PendingLinkKey)
//
// # Backends
//
//	store := session.NewMemoryStore()            // default, single process
//	store := session.NewSQLStore(db)             // any database/sql driver
//	store, err := session.OpenSQLite(ctx, "links.db") // via modernc.org/sqlite
//
// Both backends accept a TTL after which entries read as absent.
package session

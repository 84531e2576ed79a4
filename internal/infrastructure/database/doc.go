// Package database provides the SQLite store behind probe history.
//
// It opens the database with WAL mode and a busy timeout, limits the pool
// to a single writer, and applies the embedded schema migrations in
// version order.
//
// Usage:
//
//	db, err := database.Open(database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database

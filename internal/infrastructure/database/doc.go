// Package database provides SQLite connectivity for a Gray Bus node.
//
// This package manages:
//   - Database connection with WAL mode so API reads run alongside writes
//   - Schema migrations from an fs.FS, each in its own transaction
//   - Connection lifecycle and health checks
//
// The node stores only diagnostics here (statistics history); bus
// messages are never persisted.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are NULLABLE or have defaults, and
// files are named YYYYMMDD_HHMMSS_description.up.sql (with an optional
// matching .down.sql).
package database

// Package database handles local store connections and schema inspection.
//
// It provides a wrapper around GORM to configure sqlite (the default,
// file-backed local store) or MySQL connections based on the application's
// configuration.
//
// # Connect
//
// Connect establishes the store connection. For sqlite the DSN enables
// foreign key enforcement, which the feed/group junction table depends on
// for its cascading deletes.
//
// # Schema Inspection
//
// GetTableColumns retrieves column definitions for a table. The sync feature
// uses it as a pre-flight check that the store schema contains the tables
// reconciliation writes to.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Store connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "feed_group")
package database

// Package store provides durable storage for projects and items.
//
// Storage is a single SQLite database opened in WAL mode with a
// single-writer connection pool. The schema is embedded and applied
// idempotently on open, with incremental migrations tracked through
// PRAGMA user_version.
//
// The query surface is typed per entity kind (ListProjects/ListItems,
// CountProjects/CountItems) but shares one predicate and sort
// vocabulary from the query package, so the domain layer can express
// all of its named orderings without special cases here.
//
// Failing to open or migrate the database is fatal to the caller;
// routine Save flushes are best-effort and their errors may be ignored.
package store

// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store and internal/task
// packages. It handles the details of query execution, optimistic
// concurrency for review state, prerequisite graph integrity checks, and
// data mapping between domain entities and database records.
package postgres

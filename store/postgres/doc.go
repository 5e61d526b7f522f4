// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: SKIP LOCKED dequeue, JSONB definition matching with a GIN
// index, embedded SQL migrations.
package postgres

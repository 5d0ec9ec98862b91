// Package postgres implements the store interfaces and the job store on
// PostgreSQL through database/sql and the pgx driver.
//
// Every store accepts a store.DBTX so it can run against the pool or inside
// a transaction (see WithTx). Schema migrations are embedded in the binary
// and applied with goose.
package postgres

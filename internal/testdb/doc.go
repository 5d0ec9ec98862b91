//go:build integration

// Package testdb provides database helpers for integration tests.
//
// Each test runs in its own transaction, which is rolled back when the test
// completes, so tests can use t.Parallel() against a shared database:
//
//	func TestTaskStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(tx, nil)
//	        // ...
//	    })
//	}
//
// Tests are skipped unless SMERA_TEST_DATABASE_URL is set. The schema is
// migrated once per test binary.
package testdb

// Package testdb provides helpers for PostgreSQL integration tests.
//
// Tests run inside a transaction that is rolled back when the test
// completes, so they see a migrated schema and leave no data behind:
//
//	func TestItemStore_Integration(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t) // skips when DATABASE_URL is unset
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewPostgresItemStore(db, nil).WithTx(tx)
//	        ...
//	    })
//	}
//
// The connection string is read from DATABASE_URL, then TODO_TEST_DB_URL.
package testdb

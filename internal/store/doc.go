// Package store provides the SQLite-backed record store for reconciled
// trace sessions.
//
// Tables (all keyed by session id, iid):
//   - runtime: key/value environment of the session
//   - syscall: one row per traced filesystem operation
//   - file: file identities (fid → path)
//   - proc: one reconciled row per process
//   - imports: audit trail of import runs
//
// # Import Transactions
//
// A session is written through an ImportTx obtained from BeginImport. The
// transaction deletes the session's existing rows before anything is
// inserted, and nothing is visible to readers until Commit:
//
//	tx, err := st.BeginImport(ctx, iid)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // no-op after Commit
//
// # Deterministic Reads
//
// Every row query is ordered (syscall and file rows by log order, proc rows
// by pid, runtime rows by item with COLLATE BINARY), so reading a session
// twice yields identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

package accesskit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes a function within a database transaction with
// automatic commit/rollback. If the function returns an error, the
// transaction is rolled back. Otherwise, it's committed. Structural writes
// (permission create/move/delete, role create/update/delete, sync) already
// run in their own transaction; use this to group several operations.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if _, err := service.CreateRole(ctx, "editor", "Editor", nil); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    if _, err := service.CreateRole(ctx, "viewer", "Viewer", nil); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return nil // This will cause a commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()

	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		return fn(bindTx(ctx, tx))
	})

	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err == nil)

	return err
}

// txContextKey carries the transaction opened by Transaction through the
// context, so service calls made inside the callback run against it.
type txContextKey struct{}

func bindTx(ctx context.Context, tx dbkit.IDB) context.Context {
	if inner, ok := tx.(*dbkit.Tx); ok {
		return context.WithValue(ctx, txContextKey{}, inner)
	}
	return ctx
}

func txFromContext(ctx context.Context) (*dbkit.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*dbkit.Tx)
	return tx, ok
}

// conn returns the handle queries should run against: the service's own
// handle when it is already transaction-bound, the context's transaction
// inside a Transaction callback, the pool otherwise.
func (s *Service) conn(ctx context.Context) dbkit.IDB {
	if _, ok := s.db.(*dbkit.Tx); ok {
		return s.db
	}
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.db
}

// runInTx runs fn against a transaction handle. If the service or the
// context is already bound to a transaction a savepoint is used, so nested
// calls compose.
func (s *Service) runInTx(ctx context.Context, fn func(tx dbkit.IDB) error) error {
	if tx, ok := s.db.(*dbkit.Tx); ok {
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	}
	if tx, ok := txFromContext(ctx); ok {
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	}
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	}
	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// txService returns a Service bound to the given transaction handle,
// sharing the parent's logger, cache and monitor.
func (s *Service) txService(tx dbkit.IDB) *Service {
	return &Service{
		db:        tx,
		logger:    s.logger,
		cache:     s.cache,
		now:       s.now,
		txMonitor: s.txMonitor,
	}
}

// structuralWrite wraps fn in one atomic transaction and hands it a Service
// bound to that transaction. Structural writes roll back entirely on any
// failure; no partial tree or ledger state is observable.
func (s *Service) structuralWrite(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error {
	start := time.Now()
	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		return fn(ctx, s.txService(tx))
	})
	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// TransactionWithOptions executes a function within a database transaction
// with custom options. Supports read-only transactions, isolation levels,
// and other transaction parameters.
//
// Example:
//
//	err := service.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(ctx context.Context) error {
//	    // High isolation level operations
//	    _, err := service.SyncRolePermissions(ctx, roleID, permissionIDs)
//	    return err
//	})
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error {
	if tx, ok := s.db.(*dbkit.Tx); ok {
		// Already in a transaction, use savepoint (no options support in
		// nested transactions).
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(bindTx(ctx, tx))
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(bindTx(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful for operations that only read data and want to
// ensure consistency.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
//	    grants, err := service.UserGrants(ctx, userID)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = service.Catalog(ctx)
//	    return err
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}

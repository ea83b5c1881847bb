package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"PdmSaas/internal/logger"
)

type advisoryLock struct {
	key    int64
	shared bool
}

func (l advisoryLock) lockSQL() string {
	if l.shared {
		return `SELECT pg_advisory_lock_shared($1::bigint)`
	}
	return `SELECT pg_advisory_lock($1::bigint)`
}

func (l advisoryLock) unlockSQL() string {
	if l.shared {
		return `SELECT pg_advisory_unlock_shared($1::bigint)`
	}
	return `SELECT pg_advisory_unlock($1::bigint)`
}

// scopeLocks returns the advisory locks a replace of scope must hold, in
// acquisition order. A year-scoped replace shares the organization lock so
// that replaces of different years run in parallel while an organization-wide
// replace excludes all of them.
func scopeLocks(scope Scope) []advisoryLock {
	if scope.FiscalYear == nil {
		return []advisoryLock{{key: scope.orgLockKey()}}
	}
	return []advisoryLock{
		{key: scope.orgLockKey(), shared: true},
		{key: scope.yearLockKey()},
	}
}

// lockScope blocks until every lock of scope is held on conn. The returned
// func releases them in reverse order; if a release fails the connection is
// closed so the pool never hands out a session still holding a lock.
func lockScope(ctx context.Context, conn *pgxpool.Conn, scope Scope) (func(), error) {
	locks := scopeLocks(scope)
	acquired := 0

	unlock := func() {
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := acquired - 1; i >= 0; i-- {
			var ok bool
			err := conn.QueryRow(uctx, locks[i].unlockSQL(), locks[i].key).Scan(&ok)
			if err != nil || !ok {
				logger.L().WithError(err).WithField("scope", scope.String()).
					Warn("advisory unlock failed, closing connection")
				_ = conn.Conn().Close(uctx)
				return
			}
		}
	}

	for _, l := range locks {
		if _, err := conn.Exec(ctx, l.lockSQL(), l.key); err != nil {
			unlock()
			return nil, err
		}
		acquired++
	}
	return unlock, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *AccessLogStore) RecordEntry(ctx context.Context, e types.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = types.Now()
	}
	loggedMs := e.Timestamp.Millis()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Unknown devices are logged too; give them a disabled row.
		if err := ensureDevice(ctx, tx, e.DeviceID, loggedMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_log(
  log_id, device_id, door_id, user_id, user_name, card_uid,
  action, result, reason, logged_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			e.ID, e.DeviceID, nullable(e.DoorID), nullable(e.UserID), nullable(e.UserName), e.CardUID,
			string(e.Action), string(e.Result), nullable(e.Reason), loggedMs,
		); err != nil {
			return fmt.Errorf("RecordEntry insert: %w", err)
		}

		return nil
	})
}

func (s *AccessLogStore) ListEntries(ctx context.Context, page, limit int) ([]types.AccessLogEntry, error) {
	if page < 1 {
		page = 1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT log_id, device_id, door_id, user_id, user_name, card_uid,
       action, result, reason, logged_at_ms
FROM access_log
ORDER BY logged_at_ms DESC, rowid DESC
LIMIT ? OFFSET ?;
`, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("ListEntries query: %w", err)
	}
	defer rows.Close()

	out := []types.AccessLogEntry{}
	for rows.Next() {
		var (
			entry                            types.AccessLogEntry
			doorID, userID, userName, reason sql.NullString
			action, result                   string
			loggedMs                         int64
		)
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &doorID, &userID, &userName, &entry.CardUID,
			&action, &result, &reason, &loggedMs); err != nil {
			return nil, fmt.Errorf("ListEntries scan: %w", err)
		}
		entry.DoorID = doorID.String
		entry.UserID = userID.String
		entry.UserName = userName.String
		entry.Reason = reason.String
		entry.Action = types.AccessAction(action)
		entry.Result = types.AccessResult(result)
		entry.Timestamp = types.FromMillis(loggedMs)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *AccessLogStore) CountSince(ctx context.Context, since time.Time) (store.AccessCounts, error) {
	var c store.AccessCounts
	err := s.db.QueryRowContext(ctx, `
SELECT
  COALESCE(SUM(CASE WHEN result = 'granted' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN result = 'granted' THEN 0 ELSE 1 END), 0)
FROM access_log
WHERE logged_at_ms >= ?;
`, since.UTC().UnixMilli()).Scan(&c.Granted, &c.Denied)
	if err != nil {
		return store.AccessCounts{}, fmt.Errorf("CountSince query: %w", err)
	}
	return c, nil
}

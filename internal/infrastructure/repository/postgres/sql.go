package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isBindParameterMismatch matches the error transaction poolers raise when an
// unnamed statement is reused across server connections.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bind message supplies") && strings.Contains(msg, "prepared statement")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unnamed prepared statement does not exist") {
		return true
	}
	return strings.Contains(msg, "prepared statement") && strings.Contains(msg, "26000")
}

func isPoolerStatementError(err error) bool {
	return isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err)
}

// inTx runs fn in one transaction and appends events to the outbox before
// committing, so the entity change and its messages land together.
func inTx(ctx context.Context, db *sqlx.DB, writer *outbox.Writer, name string, events []messaging.Event, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if writer != nil {
		if err := writer.Append(ctx, tx, events); err != nil {
			return fmt.Errorf("%s outbox: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}
	return nil
}

// stamp returns the time and actor to record on child rows written with a
// parent entity.
func stamp(a audit.Audit) (time.Time, string) {
	if a.ModifiedUTC != nil && a.ModifiedBy != nil {
		return a.ModifiedUTC.UTC(), *a.ModifiedBy
	}
	return a.CreatedUTC.UTC(), a.CreatedBy
}

type auditColumns struct {
	CreatedUTC  time.Time      `db:"created_utc"`
	ModifiedUTC sql.NullTime   `db:"modified_utc"`
	CreatedBy   string         `db:"created_by"`
	ModifiedBy  sql.NullString `db:"modified_by"`
}

func auditToColumns(a audit.Audit) auditColumns {
	return auditColumns{
		CreatedUTC:  a.CreatedUTC.UTC(),
		ModifiedUTC: nullTime(a.ModifiedUTC),
		CreatedBy:   a.CreatedBy,
		ModifiedBy:  nullString(a.ModifiedBy),
	}
}

func (c auditColumns) toDomain() audit.Audit {
	return audit.Audit{
		CreatedUTC:  c.CreatedUTC,
		ModifiedUTC: timePtr(c.ModifiedUTC),
		CreatedBy:   c.CreatedBy,
		ModifiedBy:  stringPtr(c.ModifiedBy),
	}
}

// childAudit is the audit written on rows owned by a parent entity. Upserts
// keep the created pair of an existing row, so only the modified pair lands.
func childAudit(parent audit.Audit) auditColumns {
	at, by := stamp(parent)
	out := auditColumns{CreatedUTC: at, CreatedBy: by}
	if parent.ModifiedUTC != nil && parent.ModifiedBy != nil {
		out.ModifiedUTC = nullTime(&at)
		out.ModifiedBy = nullString(&by)
	}
	return out
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func stringSliceToAny(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

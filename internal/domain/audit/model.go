package audit

import "time"

// Audit carries the bookkeeping columns shared by every entity table.
type Audit struct {
	CreatedUTC  time.Time
	ModifiedUTC *time.Time
	CreatedBy   string
	ModifiedBy  *string
}

// Created stamps a new row. by is usually the correlation id of the
// message that caused the write.
func Created(by string, now time.Time) Audit {
	return Audit{CreatedUTC: now.UTC(), CreatedBy: by}
}

// Touch marks the row as modified.
func (a *Audit) Touch(by string, now time.Time) {
	at := now.UTC()
	a.ModifiedUTC = &at
	if by != "" {
		a.ModifiedBy = &by
	}
}

// Package runs journals reservation runs and their ticks to postgres.
package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/db"
	"github.com/example/cafebook/internal/loop"
)

type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusSessionLost Status = "session_lost"
	StatusFailed      Status = "failed"
)

// StatusFor maps the loop's exit error to the status recorded for the run.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case errors.Is(err, loop.ErrSessionLost):
		return StatusSessionLost
	case errors.Is(err, context.Canceled):
		return StatusInterrupted
	}
	return StatusFailed
}

type Run struct {
	ID int64
	// Token correlates the run's log lines with its journal entry.
	Token           string
	Venue           string
	Guests          int
	ReservationDate time.Time
	MinTime         *string
	MaxTime         *string

	Status    Status
	LastState *string
	LastError *string
	TickCount int

	StartedAt  time.Time
	FinishedAt *time.Time
}

// Window renders the time bounds the run was started with.
func (r Run) Window() string {
	lo, hi := "any", "any"
	if r.MinTime != nil {
		lo = *r.MinTime
	}
	if r.MaxTime != nil {
		hi = *r.MaxTime
	}
	if r.MinTime == nil && r.MaxTime == nil {
		return "first available"
	}
	return lo + " - " + hi
}

type Tick struct {
	RunID      int64
	Seq        int
	State      string
	ActionKind string
	Action     string
	Note       string
	Warn       bool
	At         time.Time
}

// TickFrom flattens a loop tick for storage.
func TickFrom(runID int64, t loop.Tick) Tick {
	return Tick{
		RunID:      runID,
		Seq:        t.Seq,
		State:      t.State.String(),
		ActionKind: t.Action.Kind.String(),
		Action:     t.Action.String(),
		Note:       t.Action.Note,
		Warn:       t.Action.Warn,
		At:         t.At,
	}
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, token string, req booking.Request) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO runs(token,venue,guests,reservation_date,min_time,max_time,status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
		token, string(req.Venue), req.Guests, req.Date, slotText(req.MinTime), slotText(req.MaxTime), StatusRunning,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

// RecordTick stores t and bumps the run's last state and tick count.
func (r *Repo) RecordTick(ctx context.Context, t Tick) error {
	return r.db.WithTx(ctx, func(tx db.Tx) error {
		if err := tx.Exec(ctx, `
INSERT INTO ticks(run_id,seq,state,action_kind,action,note,warn,at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			t.RunID, t.Seq, t.State, t.ActionKind, t.Action, t.Note, t.Warn, t.At); err != nil {
			return fmt.Errorf("insert tick: %w", err)
		}
		return tx.Exec(ctx, `UPDATE runs SET last_state=$2, tick_count=tick_count+1 WHERE id=$1`, t.RunID, t.State)
	})
}

func (r *Repo) Finish(ctx context.Context, runID int64, status Status, lastErr *string) error {
	return r.db.Exec(ctx, `UPDATE runs SET status=$2, last_error=$3, finished_at=now() WHERE id=$1`, runID, status, lastErr)
}

const runColumns = `id,token::text,venue,guests,reservation_date,min_time,max_time,status,last_state,last_error,tick_count,started_at,finished_at`

func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id))
	if err != nil {
		return Run{}, db.WrapNotFound(err)
	}
	return run, nil
}

func (r *Repo) Ticks(ctx context.Context, runID int64) ([]Tick, error) {
	rows, err := r.db.Query(ctx, `
SELECT run_id,seq,state,action_kind,action,note,warn,at
FROM ticks
WHERE run_id=$1
ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tick
	for rows.Next() {
		var t Tick
		if err := rows.Scan(&t.RunID, &t.Seq, &t.State, &t.ActionKind, &t.Action, &t.Note, &t.Warn, &t.At); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanRun(row db.Row) (Run, error) {
	var run Run
	var status string
	err := row.Scan(&run.ID, &run.Token, &run.Venue, &run.Guests, &run.ReservationDate, &run.MinTime, &run.MaxTime,
		&status, &run.LastState, &run.LastError, &run.TickCount, &run.StartedAt, &run.FinishedAt)
	run.Status = Status(status)
	return run, err
}

func slotText(s *booking.TimeSlot) *string {
	if s == nil {
		return nil
	}
	v := s.String()
	return &v
}

// Journal writes one run's ticks. It satisfies loop.Journal.
type Journal struct {
	repo  *Repo
	runID int64
}

func (r *Repo) Journal(runID int64) *Journal { return &Journal{repo: r, runID: runID} }

func (j *Journal) RunID() int64 { return j.runID }

func (j *Journal) Record(ctx context.Context, t loop.Tick) error {
	return j.repo.RecordTick(ctx, TickFrom(j.runID, t))
}

// Finish closes the run with the status implied by the loop's exit error.
func (j *Journal) Finish(ctx context.Context, loopErr error) error {
	var lastErr *string
	status := StatusFor(loopErr)
	if status == StatusFailed || status == StatusSessionLost {
		msg := loopErr.Error()
		lastErr = &msg
	}
	return j.repo.Finish(ctx, j.runID, status, lastErr)
}

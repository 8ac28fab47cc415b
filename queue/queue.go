// Package queue keeps submissions made while offline until they can be sent
// to the backend.
//
// Every entry is a row of the formResponses table holding the JSON encoded
// submission. An entry is either pending, or gone: deleted by hand or after
// the backend acknowledged it. Failed sends leave it pending until the next
// manual flush.
package queue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/submission"
)

// StorageError reports a failed read or write of the local table.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("queue.%s: %s", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type Entry struct {
	ID      int64            `json:"id"`
	Payload model.Submission `json:"responseData"`
}

// Submitter sends one submission to the backend.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (model.FormResponse, error)
}

type Queue struct {
	db *sql.DB
}

func New(db *sql.DB) *Queue {
	return &Queue{db}
}

// Enqueue appends sub and returns the new entry id. Submissions without an
// idempotency key get one, so a resend after a lost acknowledgment can be
// recognized by the backend.
func (q *Queue) Enqueue(ctx context.Context, sub model.Submission) (int64, error) {
	if err := submission.Stamp(&sub); err != nil {
		return 0, &StorageError{"enqueue.stamp", err}
	}
	blob, err := json.Marshal(sub)
	if err != nil {
		return 0, &StorageError{"enqueue.encode", err}
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO formResponses (responseData) VALUES (?)`,
		string(blob),
	)
	if err != nil {
		return 0, &StorageError{"enqueue.insert", err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{"enqueue.last_id", err}
	}

	log.Debugf("queue.enqueue: form %d as entry %d", sub.Form, id)
	return id, nil
}

// List returns every pending entry, newest first.
func (q *Queue) List(ctx context.Context) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, responseData
		FROM formResponses
		ORDER BY id DESC`)
	if err != nil {
		return nil, &StorageError{"list", err}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var blob sql.NullString
		err = rows.Scan(&e.ID, &blob)
		if err != nil {
			return nil, &StorageError{"list.scan", err}
		}
		if blob.Valid && blob.String != "" {
			err = json.Unmarshal([]byte(blob.String), &e.Payload)
			if err != nil {
				return nil, &StorageError{"list.decode", errors.Wrapf(err, "entry %d", e.ID)}
			}
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, &StorageError{"list.rows", err}
	}
	return entries, nil
}

// Delete removes an entry. Deleting an unknown id is a no-op.
func (q *Queue) Delete(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM formResponses WHERE id = ?`,
		id,
	)
	if err != nil {
		return &StorageError{"delete", err}
	}
	return nil
}

// Len counts pending entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM formResponses`).Scan(&n)
	if err != nil {
		return 0, &StorageError{"len", err}
	}
	return n, nil
}

// Report is the outcome of a flush.
type Report struct {
	Sent   []int64
	Failed []int64
	// Errors aggregates the send failure of every entry in Failed.
	Errors error
}

// Flush sends the pending entries one at a time, in List order. An entry
// the backend accepted is deleted; a failed one is logged and kept, and the
// flush moves on. The returned error is only set when the local table could
// not be read or an accepted entry could not be deleted.
func (q *Queue) Flush(ctx context.Context, s Submitter) (Report, error) {
	report := Report{}

	entries, err := q.List(ctx)
	if err != nil {
		return report, err
	}

	var failures *multierror.Error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		resp, err := s.Submit(ctx, e.Payload)
		if err != nil {
			log.WithFields(log.Fields{
				"entry": e.ID,
				"form":  e.Payload.Form,
			}).WithError(err).Warn("queue.flush.submit")
			report.Failed = append(report.Failed, e.ID)
			failures = multierror.Append(failures, errors.Wrapf(err, "entry %d", e.ID))
			continue
		}

		if err := q.Delete(ctx, e.ID); err != nil {
			report.Errors = failures.ErrorOrNil()
			return report, err
		}
		log.Debugf("queue.flush: entry %d stored as response %d", e.ID, resp.ID)
		report.Sent = append(report.Sent, e.ID)
	}

	report.Errors = failures.ErrorOrNil()
	return report, nil
}

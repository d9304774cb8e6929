package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

func (d *DB) RecordReview(ctx context.Context, record *store.RecordReview) (*store.ReviewLog, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	state := record.State
	result, err := tx.ExecContext(ctx, `
		UPDATE item
		SET interval_days = ?, ease_factor = ?, repetitions = ?, due_date = ?, last_reviewed = ?, updated_ts = ?
		WHERE id = ?`,
		state.Interval, state.EaseFactor, state.Repetitions, sm2.FormatDate(state.DueDate), nullDate(state.LastReviewed),
		record.UpdatedTs, record.ItemID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update item state")
	}
	if err := requireRow(result, record.ItemID); err != nil {
		return nil, err
	}

	log := &store.ReviewLog{
		ItemID:     record.ItemID,
		ReviewedOn: record.ReviewedOn,
		Rating:     record.Rating,
		Interval:   state.Interval,
		EaseFactor: state.EaseFactor,
	}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO review_log (item_id, reviewed_on, rating, interval_days, ease_factor)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_ts`,
		log.ItemID, sm2.FormatDate(log.ReviewedOn), int(log.Rating), log.Interval, log.EaseFactor,
	).Scan(&log.ID, &log.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create review log")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit review")
	}
	return log, nil
}

func (d *DB) ListReviewLogs(ctx context.Context, find *store.FindReviewLog) ([]*store.ReviewLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ItemID; v != nil {
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Since; v != nil {
		where, args = append(where, "reviewed_on >= "+placeholder(len(args)+1)), append(args, sm2.FormatDate(*v))
	}

	query := `
		SELECT id, item_id, created_ts, reviewed_on, rating, interval_days, ease_factor
		FROM review_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY reviewed_on DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query review logs")
	}
	defer rows.Close()

	list := make([]*store.ReviewLog, 0)
	for rows.Next() {
		var log store.ReviewLog
		var reviewedOn string
		var rating int
		if err := rows.Scan(&log.ID, &log.ItemID, &log.CreatedTs, &reviewedOn, &rating, &log.Interval, &log.EaseFactor); err != nil {
			return nil, errors.Wrap(err, "failed to scan review log")
		}
		if log.ReviewedOn, err = sm2.ParseDate(reviewedOn); err != nil {
			return nil, rerrors.DataIntegrity(fmt.Sprintf("review log %d has a corrupt date", log.ID), err)
		}
		log.Rating = sm2.Rating(rating)
		list = append(list, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate review logs")
	}
	return list, nil
}

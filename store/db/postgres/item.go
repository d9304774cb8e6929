package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/sm2"
	"github.com/hrygo/retain/store"
)

func (d *DB) CreateItem(ctx context.Context, create *store.Item) (*store.Item, error) {
	payload, err := store.EncodeContent(create.Content)
	if err != nil {
		return nil, err
	}

	fields := []string{
		"uid", "kind", "created_ts", "updated_ts", "summary", "payload", "language", "mcq_type",
		"interval_days", "ease_factor", "repetitions", "due_date", "last_reviewed",
	}
	args := []any{
		create.UID, string(create.Kind()), create.CreatedTs, create.UpdatedTs, create.Content.Summary(), payload,
		nullString(string(create.Language())), nullString(string(create.MCQType())),
		create.Interval, create.EaseFactor, create.Repetitions, sm2.FormatDate(create.DueDate), nullDate(create.LastReviewed),
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	stmt := `INSERT INTO item (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create item")
	}
	if err := insertTags(ctx, tx, create.ID, create.Tags); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit item")
	}
	return create, nil
}

func (d *DB) ListItems(ctx context.Context, find *store.FindItem) ([]*store.Item, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "item.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "item.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Kind; v != nil {
		where, args = append(where, "item.kind = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.Language; v != nil {
		where, args = append(where, "item.language = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := find.MCQType; v != nil {
		where, args = append(where, "item.mcq_type = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	for _, tag := range find.Tags {
		where, args = append(where, "EXISTS (SELECT 1 FROM item_tag WHERE item_tag.item_id = item.id AND item_tag.tag = "+placeholder(len(args)+1)+")"), append(args, tag)
	}
	if v := find.DueAsOf; v != nil {
		where, args = append(where, "item.due_date <= "+placeholder(len(args)+1)), append(args, sm2.FormatDate(*v))
	}
	if v := find.Summary; v != nil {
		where, args = append(where, "item.summary = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Search; v != nil {
		where, args = append(where, "LOWER(item.summary) LIKE "+placeholder(len(args)+1)), append(args, "%"+strings.ToLower(*v)+"%")
	}

	orderBy := "ORDER BY item.id ASC"
	if find.DueAsOf != nil {
		orderBy = "ORDER BY item.due_date ASC, item.id ASC"
	}

	query := `
		SELECT
			id, uid, kind, created_ts, updated_ts, payload,
			interval_days, ease_factor, repetitions,
			to_char(due_date, 'YYYY-MM-DD'), to_char(last_reviewed, 'YYYY-MM-DD')
		FROM item
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}
	if find.Offset != nil {
		query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query items")
	}
	defer rows.Close()

	list := make([]*store.Item, 0)
	for rows.Next() {
		var item store.Item
		var kind, payload, dueDate string
		var lastReviewed sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.UID,
			&kind,
			&item.CreatedTs,
			&item.UpdatedTs,
			&payload,
			&item.Interval,
			&item.EaseFactor,
			&item.Repetitions,
			&dueDate,
			&lastReviewed,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}

		if item.Content, err = store.DecodeContent(store.Kind(kind), []byte(payload)); err != nil {
			return nil, rerrors.DataIntegrity(fmt.Sprintf("item %d has an unreadable payload", item.ID), err)
		}
		if item.DueDate, err = sm2.ParseDate(dueDate); err != nil {
			return nil, rerrors.DataIntegrity(fmt.Sprintf("item %d has corrupt scheduling state", item.ID),
				&sm2.CorruptStateError{Field: "due_date", Value: dueDate})
		}
		if lastReviewed.Valid {
			last, err := sm2.ParseDate(lastReviewed.String)
			if err != nil {
				return nil, rerrors.DataIntegrity(fmt.Sprintf("item %d has corrupt scheduling state", item.ID),
					&sm2.CorruptStateError{Field: "last_reviewed", Value: lastReviewed.String})
			}
			item.LastReviewed = &last
		}
		list = append(list, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate items")
	}
	rows.Close()

	if err := d.loadTags(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateItem(ctx context.Context, update *store.UpdateItem) error {
	set, args := []string{}, []any{}

	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Content; v != nil {
		payload, err := store.EncodeContent(v)
		if err != nil {
			return err
		}
		item := store.Item{Content: v}
		set, args = append(set, "kind = "+placeholder(len(args)+1)), append(args, string(v.Kind()))
		set, args = append(set, "summary = "+placeholder(len(args)+1)), append(args, v.Summary())
		set, args = append(set, "payload = "+placeholder(len(args)+1)), append(args, payload)
		set, args = append(set, "language = "+placeholder(len(args)+1)), append(args, nullString(string(item.Language())))
		set, args = append(set, "mcq_type = "+placeholder(len(args)+1)), append(args, nullString(string(item.MCQType())))
	}
	if v := update.State; v != nil {
		set, args = append(set, "interval_days = "+placeholder(len(args)+1)), append(args, v.Interval)
		set, args = append(set, "ease_factor = "+placeholder(len(args)+1)), append(args, v.EaseFactor)
		set, args = append(set, "repetitions = "+placeholder(len(args)+1)), append(args, v.Repetitions)
		set, args = append(set, "due_date = "+placeholder(len(args)+1)), append(args, sm2.FormatDate(v.DueDate))
		set, args = append(set, "last_reviewed = "+placeholder(len(args)+1)), append(args, nullDate(v.LastReviewed))
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := `UPDATE item SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return errors.Wrap(err, "failed to update item")
		}
		if err := requireRow(result, update.ID); err != nil {
			return err
		}
	}
	if update.Tags != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM item_tag WHERE item_id = $1", update.ID); err != nil {
			return errors.Wrap(err, "failed to clear item tags")
		}
		if err := insertTags(ctx, tx, update.ID, *update.Tags); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit item update")
}

func (d *DB) DeleteItem(ctx context.Context, delete *store.DeleteItem) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM item WHERE id = $1", delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete item")
	}
	if err := requireRow(result, delete.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_tag WHERE item_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete item tags")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM review_log WHERE item_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete review logs")
	}
	return errors.Wrap(tx.Commit(), "failed to commit item delete")
}

func insertTags(ctx context.Context, tx *sql.Tx, itemID int32, tags []string) error {
	for position, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO item_tag (item_id, tag, position) VALUES ($1, $2, $3)",
			itemID, tag, position,
		); err != nil {
			return errors.Wrapf(err, "failed to tag item %d with %q", itemID, tag)
		}
	}
	return nil
}

// loadTags fills Tags for every item with one query.
func (d *DB) loadTags(ctx context.Context, list []*store.Item) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[int32]*store.Item, len(list))
	args := make([]any, 0, len(list))
	for _, item := range list {
		item.Tags = []string{}
		byID[item.ID] = item
		args = append(args, item.ID)
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT item_id, tag FROM item_tag WHERE item_id IN ("+placeholders(len(args))+") ORDER BY item_id, position",
		args...,
	)
	if err != nil {
		return errors.Wrap(err, "failed to query item tags")
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int32
		var tag string
		if err := rows.Scan(&itemID, &tag); err != nil {
			return errors.Wrap(err, "failed to scan item tag")
		}
		if item, ok := byID[itemID]; ok {
			item.Tags = append(item.Tags, tag)
		}
	}
	return errors.Wrap(rows.Err(), "failed to iterate item tags")
}

func requireRow(result sql.Result, id int32) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return rerrors.NotFound("item", id)
	}
	return nil
}

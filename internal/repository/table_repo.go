package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pwendlys/viaja-mais/internal/models"
)

// TableRepository applies loosely-shaped mutations replayed from the
// offline queue. Only whitelisted tables and columns reach SQL.
type TableRepository interface {
	Apply(ctx context.Context, op *models.PendingOperation) error
}

var writableColumns = map[string]map[string]bool{
	"rides": columnSet(
		"id", "patient_id", "driver_id", "origin_lat", "origin_lng", "origin_address",
		"destination_lat", "destination_lng", "destination_address", "status", "vehicle_type",
		"urgency", "price", "distance_km", "duration_minutes", "notes", "medical_notes",
		"appointment_type", "scheduled_for", "cancellation_reason", "service_rating",
		"driver_rating", "accepted_at", "started_at", "completed_at", "cancelled_at",
		"created_at", "updated_at",
	),
	"profiles": columnSet("id", "full_name", "phone", "is_elderly", "has_disability", "updated_at"),
	"drivers":  columnSet("id", "is_available", "current_lat", "current_lng", "last_location_at", "updated_at"),
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

type tableRepository struct {
	db *sqlx.DB
}

func NewTableRepository(db *sqlx.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) Apply(ctx context.Context, op *models.PendingOperation) error {
	query, args, err := BuildMutation(op)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// BuildMutation turns a pending operation into a parameterised statement.
// Creates use ON CONFLICT DO NOTHING so a replay after a lost response is harmless.
func BuildMutation(op *models.PendingOperation) (string, []interface{}, error) {
	allowed, ok := writableColumns[op.Table]
	if !ok {
		return "", nil, fmt.Errorf("table %q is not writable", op.Table)
	}

	fields, err := decodeFields(op.Data)
	if err != nil {
		return "", nil, err
	}

	recordID := op.RecordID
	if recordID == "" {
		if id, ok := fields["id"].(string); ok {
			recordID = id
		}
	}

	switch op.Type {
	case models.OperationCreate:
		cols, args, err := pickColumns(fields, allowed)
		if err != nil {
			return "", nil, err
		}
		if len(cols) == 0 {
			return "", nil, fmt.Errorf("create on %s has no columns", op.Table)
		}
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
			op.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		return query, args, nil

	case models.OperationUpdate:
		if recordID == "" {
			return "", nil, fmt.Errorf("update on %s without record id", op.Table)
		}
		delete(fields, "id")
		cols, args, err := pickColumns(fields, allowed)
		if err != nil {
			return "", nil, err
		}
		if len(cols) == 0 {
			return "", nil, fmt.Errorf("update on %s has no columns", op.Table)
		}
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		}
		args = append(args, recordID)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", op.Table, strings.Join(sets, ", "), len(args))
		return query, args, nil

	case models.OperationDelete:
		if recordID == "" {
			return "", nil, fmt.Errorf("delete on %s without record id", op.Table)
		}
		return fmt.Sprintf("DELETE FROM %s WHERE id = $1", op.Table), []interface{}{recordID}, nil
	}

	return "", nil, fmt.Errorf("unknown operation type %q", op.Type)
}

func decodeFields(data json.RawMessage) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if len(data) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode operation payload: %w", err)
	}
	return fields, nil
}

func pickColumns(fields map[string]interface{}, allowed map[string]bool) ([]string, []interface{}, error) {
	cols := make([]string, 0, len(fields))
	for name := range fields {
		if !allowed[name] {
			return nil, nil, fmt.Errorf("column %q is not writable", name)
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)

	args := make([]interface{}, len(cols))
	for i, c := range cols {
		v, err := sqlValue(fields[c])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return cols, args, nil
}

func sqlValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

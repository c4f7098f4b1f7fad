package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeValue reduces a pgx-scanned value to a representable primitive
// before it leaves the store: decimals become float64, timestamps become
// RFC 3339 strings, uuids become their text form. Everything raw-path rows
// carry must survive a json.Marshal unchanged.
func normalizeValue(v any) any {
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		return string(v)
	default:
		return v
	}
}

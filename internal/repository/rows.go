package repository

import "database/sql"

// Row is a dynamically projected record. Listings go through the query
// engine, which picks the SELECT columns per request, so rows cannot be
// scanned into a fixed struct.
type Row map[string]any

// scanRows materializes all rows with their column names preserved. []byte
// values are copied to strings so rows stay valid after the cursor closes.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Package sqlutil holds small database/sql helpers shared by the SQLite source.
package sqlutil

import "database/sql"

// ScanRows scans all rows into a slice using the provided scanner and closes
// rows. The result is never nil.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ScanCounts collects (name, count) rows into a map.
func ScanCounts(rows *sql.Rows) (map[string]int, error) {
	type pair struct {
		name string
		n    int
	}
	pairs, err := ScanRows(rows, func(r *sql.Rows) (pair, error) {
		var p pair
		err := r.Scan(&p.name, &p.n)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		out[p.name] = p.n
	}
	return out, nil
}

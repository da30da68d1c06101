package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence advances the counter in "<table>_sequence" and returns the new value.
//
// Sequence numbers give jobs a stable insertion order independent of clock resolution.
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}

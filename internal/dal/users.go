// package dal is the data access layer. It contains functions that perform
// SQL queries and logic that cannot be decoupled from the queries. Files
// correspond to SQL tables.
package dal

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kresha325/FootballPro-sub001/internal/schemas"
)

// CreateUser adds a user to the database and consumes their invite code in
// one transaction.
func CreateUser(db *sql.DB, username, displayName, hashedPassword, inviteCode string) error {
	userId := uuid.New().String()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO users (id, username, display_name, password) VALUES (?, ?, ?, ?)",
		userId,
		username,
		displayName,
		hashedPassword,
	)
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}

	result, err := tx.Exec(
		"UPDATE invite_codes SET registered_user_id = ? WHERE code = ? AND registered_user_id IS NULL",
		userId, inviteCode,
	)
	if err != nil {
		return fmt.Errorf("error updating invite code: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("invite code not found or already used")
	}

	return tx.Commit()
}

func GetUserByUsername(db *sql.DB, username string) (*schemas.User, error) {
	var user schemas.User

	query := "SELECT id, username, display_name, password, created_at FROM users WHERE username = ?"
	err := db.QueryRow(query, username).Scan(&user.Id, &user.Username, &user.DisplayName, &user.Password, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %s", username)
		}
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &user, nil
}

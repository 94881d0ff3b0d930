package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createHighScoreTableSQL = `
CREATE TABLE IF NOT EXISTS HighScore (
    ID INTEGER PRIMARY KEY CHECK (ID = 1),
    Score INTEGER NOT NULL DEFAULT 0,
    UpdatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// 只升不降，多个进程共用一个库时也成立
const upsertHighScoreSQL = `
INSERT INTO HighScore (ID, Score, UpdatedAt) VALUES (1, ?, CURRENT_TIMESTAMP)
ON CONFLICT(ID) DO UPDATE SET
    Score = MAX(Score, excluded.Score),
    UpdatedAt = CURRENT_TIMESTAMP;
`

func executeSQL(db *sql.DB, sqlStatement string) error {
	_, err := db.Exec(sqlStatement)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %s: %w", sqlStatement, err)
	}
	return nil
}

func InitializeDatabase(db *sql.DB) error {
	return executeSQL(db, createHighScoreTableSQL)
}

// ScoreStore keeps the high score in a single-row sqlite table.
type ScoreStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string) (*ScoreStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ScoreStore{db: db}, nil
}

// NewScoreStore wraps an already opened database.
func NewScoreStore(db *sql.DB) (*ScoreStore, error) {
	if err := InitializeDatabase(db); err != nil {
		return nil, err
	}
	return &ScoreStore{db: db}, nil
}

// Load returns 0 when no score has been saved yet.
func (s *ScoreStore) Load() (int, error) {
	var score int
	err := s.db.QueryRow("SELECT Score FROM HighScore WHERE ID = 1").Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

func (s *ScoreStore) Save(score int) error {
	// 开启事务
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(upsertHighScoreSQL, score); err != nil {
		tx.Rollback()
		return err
	}
	// 提交事务
	return tx.Commit()
}

func (s *ScoreStore) Close() error {
	return s.db.Close()
}

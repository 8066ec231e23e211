// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/arena/models"
)

// PostgreSQL 基于 database/sql 的实现，不经过 GORM
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS player_profiles (
            id SERIAL PRIMARY KEY,
            player_id VARCHAR(255) UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            data JSONB,
            stats JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            round INT DEFAULT 1,
            ticks BIGINT DEFAULT 0,
            players JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS room_snapshots (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) UNIQUE NOT NULL,
            state VARCHAR(50) NOT NULL,
            players JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_player_profiles_player_id ON player_profiles(player_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_room_id ON match_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_created_at ON match_records(created_at);
        CREATE INDEX IF NOT EXISTS idx_room_snapshots_room_id ON room_snapshots(room_id);
    `)

	return err
}

// SavePlayerProfile 保存玩家档案
func (p *PostgreSQL) SavePlayerProfile(playerID, name string, data map[string]interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO player_profiles (player_id, name, data)
        VALUES ($1, $2, $3)
        ON CONFLICT (player_id)
        DO UPDATE SET name = $2, data = $3, updated_at = CURRENT_TIMESTAMP
    `

	_, err = p.db.ExecContext(ctx, query, playerID, name, jsonData)
	return err
}

// LoadPlayerProfile 加载玩家档案数据
func (p *PostgreSQL) LoadPlayerProfile(playerID string, result *map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var data []byte
	query := `SELECT data FROM player_profiles WHERE player_id = $1`
	err := p.db.QueryRowContext(ctx, query, playerID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRecordNotFound
		}
		return err
	}

	return json.Unmarshal(data, result)
}

// SaveMatchRecord 保存对局记录并在同一事务里累加玩家统计
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, mp := range record.Players {
		players[mp.PlayerID] = map[string]interface{}{
			"name":         mp.Name,
			"display_name": mp.DisplayName,
			"outcome":      mp.Outcome,
		}
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO match_records (room_id, round, ticks, players)
        VALUES ($1, $2, $3, $4)
    `, record.RoomID, record.Round, record.Ticks, playersJSON)
	if err != nil {
		return err
	}

	for _, mp := range record.Players {
		_, err = tx.ExecContext(ctx, `
            UPDATE player_profiles SET stats = jsonb_set(
                COALESCE(stats, '{}'::jsonb),
                '{total_games}',
                to_jsonb(COALESCE((stats->>'total_games')::int, 0) + 1)
            ), updated_at = CURRENT_TIMESTAMP
            WHERE player_id = $1
        `, mp.PlayerID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveRoomSnapshot 保存房间快照
func (p *PostgreSQL) SaveRoomSnapshot(snapshot *models.RoomSnapshot) error {
	playersJSON, err := json.Marshal(snapshot.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO room_snapshots (room_id, state, players)
        VALUES ($1, $2, $3)
        ON CONFLICT (room_id)
        DO UPDATE SET state = $2, players = $3, updated_at = CURRENT_TIMESTAMP
    `

	_, err = p.db.ExecContext(ctx, query, snapshot.RoomID, snapshot.State, playersJSON)
	return err
}

// GetPlayerStats 聚合某个玩家的对局统计
func (p *PostgreSQL) GetPlayerStats(playerID string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var totalGames, wins, losses, abandoned sql.NullInt64
	err := p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            SUM(CASE WHEN players->$1->>'outcome' = 'win' THEN 1 ELSE 0 END),
            SUM(CASE WHEN players->$1->>'outcome' = 'lose' THEN 1 ELSE 0 END),
            SUM(CASE WHEN players->$1->>'outcome' = 'abandoned' THEN 1 ELSE 0 END)
        FROM match_records
        WHERE jsonb_exists(players, $1)`, playerID,
	).Scan(&totalGames, &wins, &losses, &abandoned)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_games": totalGames.Int64,
		"wins":        wins.Int64,
		"losses":      losses.Int64,
		"abandoned":   abandoned.Int64,
	}, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

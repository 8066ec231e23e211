// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/arena/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(
		&models.GormPlayerProfile{},
		&models.GormMatchRecord{},
		&models.GormRoomSnapshot{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SavePlayerProfile 保存玩家档案（UPSERT）
func (p *GormPostgreSQL) SavePlayerProfile(playerID, name string, data map[string]interface{}) error {
	var profile models.GormPlayerProfile
	result := p.db.Where("player_id = ?", playerID).First(&profile)

	if result.Error == gorm.ErrRecordNotFound {
		profile = models.GormPlayerProfile{
			PlayerID: playerID,
			Name:     name,
			Data:     data,
		}
		return p.db.Create(&profile).Error
	} else if result.Error != nil {
		return result.Error
	}

	profile.Name = name
	profile.Data = data
	return p.db.Save(&profile).Error
}

// LoadPlayerProfile 加载玩家档案数据
func (p *GormPostgreSQL) LoadPlayerProfile(playerID string, result *map[string]interface{}) error {
	var profile models.GormPlayerProfile
	if err := p.db.Where("player_id = ?", playerID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrRecordNotFound
		}
		return err
	}

	*result = profile.Data
	return nil
}

// SaveMatchRecord 保存对局记录并在同一事务里累加玩家统计
func (p *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, mp := range record.Players {
		players[mp.PlayerID] = map[string]interface{}{
			"name":         mp.Name,
			"display_name": mp.DisplayName,
			"outcome":      mp.Outcome,
		}
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		rec := models.GormMatchRecord{
			RoomID:  record.RoomID,
			Round:   record.Round,
			Ticks:   record.Ticks,
			Players: players,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		for _, mp := range record.Players {
			var profile models.GormPlayerProfile
			if err := tx.Where("player_id = ?", mp.PlayerID).First(&profile).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					continue // 没有档案的玩家不计统计
				}
				return err
			}

			if err := tx.Model(&profile).Update("stats", gorm.Expr(`
                jsonb_set(
                    COALESCE(stats, '{}'::jsonb),
                    '{total_games}',
                    to_jsonb(COALESCE((stats->>'total_games')::int, 0) + 1)
                )
            `)).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveRoomSnapshot 保存房间快照（UPSERT）
func (p *GormPostgreSQL) SaveRoomSnapshot(snapshot *models.RoomSnapshot) error {
	var row models.GormRoomSnapshot
	result := p.db.Where("room_id = ?", snapshot.RoomID).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormRoomSnapshot{
			RoomID:  snapshot.RoomID,
			State:   snapshot.State,
			Players: snapshot.Players,
		}
		return p.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.State = snapshot.State
	row.Players = snapshot.Players
	return p.db.Save(&row).Error
}

// GetPlayerStats 聚合某个玩家的对局统计
func (p *GormPostgreSQL) GetPlayerStats(playerID string) (map[string]interface{}, error) {
	var stats map[string]interface{}

	err := p.db.Raw(`
        SELECT
            COUNT(*) as total_games,
            SUM(CASE WHEN players->?->>'outcome' = 'win' THEN 1 ELSE 0 END) as wins,
            SUM(CASE WHEN players->?->>'outcome' = 'lose' THEN 1 ELSE 0 END) as losses,
            SUM(CASE WHEN players->?->>'outcome' = 'abandoned' THEN 1 ELSE 0 END) as abandoned
        FROM match_records
        WHERE jsonb_exists(players, ?)`,
		playerID, playerID, playerID, playerID,
	).Scan(&stats).Error

	return stats, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package database

import (
	"fmt"
	"log"
	"time"

	"relay-chat/config"
	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// Migrate creates the core schema. The message struct is migrated once
// per family table; the idempotency and pair indexes are partial, so
// they are created with raw statements that both postgres and sqlite
// accept (tests run the same migration against sqlite).
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&user.User{},
		&conversation.Conversation{},
		&conversation.Member{},
		&group.Group{},
		&group.Member{},
		&message.Status{},
		&message.Reaction{},
		&message.Attachment{},
	); err != nil {
		return err
	}

	for _, kind := range []message.Kind{message.KindDirect, message.KindGroup} {
		table := kind.Table()
		if err := db.Table(table).AutoMigrate(&message.Message{}); err != nil {
			return err
		}
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_client_uuid ON %s (parent_id, sender_id, client_uuid) WHERE client_uuid IS NOT NULL",
			table, table)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

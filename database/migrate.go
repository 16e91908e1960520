// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"zentro/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RunMigrations creates or updates every table and index.
func RunMigrations(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.UserStat{},
		&models.Progression{},
		&models.XPEvent{},
		&models.UserAchievement{},
		&models.QuestProfile{},
		&models.UserQuest{},
		&models.UserTitle{},
		&models.UserUnlock{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Bet{},
		&models.RewardPayout{},
		&models.CompanionMemory{},
		&models.CompanionMessage{},
		&models.Goal{},
		&models.GoalActivity{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createQuestIndexes(db); err != nil {
		return err
	}

	log.Info().Msg("✅ All migrations completed successfully")
	return nil
}

// createQuestIndexes creates the partial unique indexes gorm tags cannot express.
func createQuestIndexes(db *gorm.DB) error {
	stmts := []string{
		// one running instance per user and quest
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_quests_active ON user_quests(user_id, quest_id) WHERE status = 'active'",
		// a one-shot quest completes once
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_user_quests_once ON user_quests(user_id, quest_id) WHERE status = 'completed' AND repeatable = false",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create quest index: %w", err)
		}
	}
	return nil
}

package database

import (
	"fmt"

	"coderoast-backend/models"

	"gorm.io/gorm"
)

// Migrate applies (idempotent) schema migrations in one transaction:
// - AutoMigrate (tables/columns/index tags)
// - Composite indexes for history and quota lookups
// - CHECK constraints on review scores
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Subscription{},
			&models.CodeReview{},
			&models.APIKey{},
			&models.Team{},
			&models.TeamMember{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_api_keys_user_created ON api_keys (user_id, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_team_members_team ON team_members (team_id)`,
			`CREATE INDEX IF NOT EXISTS idx_idempotency_keys_created ON idempotency_keys (created_at)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []struct{ table, name, expr string }{
			{"code_reviews", "chk_code_reviews_score_range", "score BETWEEN 0 AND 100"},
			{"subscriptions", "chk_subscriptions_plan", "plan IN ('free', 'pro', 'team')"},
			{"team_members", "chk_team_members_role", "role IN ('owner', 'admin', 'member')"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
	END IF;
END $$;`, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}

		return nil
	})
}

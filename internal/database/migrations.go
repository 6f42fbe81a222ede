package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

// getPostgresMigrations returns PostgreSQL migrations
func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password VARCHAR(255) NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				plan_type VARCHAR(50) NOT NULL DEFAULT 'free_trial',
				subscription_status VARCHAR(50) NOT NULL DEFAULT 'active',
				trial_ends_at TIMESTAMP WITH TIME ZONE,
				generations_used INTEGER NOT NULL DEFAULT 0,
				generations_limit INTEGER NOT NULL DEFAULT 8,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`,
		},
		{
			Version:     3,
			Description: "Create credit batches table",
			SQL: `CREATE TABLE IF NOT EXISTS credit_batches (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				remaining INTEGER NOT NULL CHECK (remaining >= 0),
				granted INTEGER NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create anonymous usage table",
			SQL: `CREATE TABLE IF NOT EXISTS anonymous_usage (
				anonymous_id VARCHAR(64) PRIMARY KEY,
				generations_used INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create usage events table",
			SQL: `CREATE TABLE IF NOT EXISTS usage_events (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36),
				anonymous_id VARCHAR(64),
				concept TEXT NOT NULL,
				audience TEXT NOT NULL,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create analogies table",
			SQL: `CREATE TABLE IF NOT EXISTS analogies (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				concept TEXT NOT NULL,
				audience TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     7,
			Description: "Create webhook events table",
			SQL: `CREATE TABLE IF NOT EXISTS webhook_events (
				id VARCHAR(36) PRIMARY KEY,
				provider VARCHAR(50) NOT NULL,
				fingerprint VARCHAR(255) UNIQUE NOT NULL,
				event_type VARCHAR(100) NOT NULL,
				customer_email VARCHAR(255) NOT NULL,
				product_id VARCHAR(255),
				received_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     8,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
				CREATE INDEX IF NOT EXISTS idx_credit_batches_user_id ON credit_batches(user_id);
				CREATE INDEX IF NOT EXISTS idx_usage_events_user_id ON usage_events(user_id);
				CREATE INDEX IF NOT EXISTS idx_usage_events_anonymous_id ON usage_events(anonymous_id);
				CREATE INDEX IF NOT EXISTS idx_analogies_user_id ON analogies(user_id);
				CREATE INDEX IF NOT EXISTS idx_webhook_events_fingerprint ON webhook_events(fingerprint);`,
		},
	}
}

// getSQLiteMigrations returns SQLite migrations
func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password TEXT NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT 0,
				plan_type TEXT NOT NULL DEFAULT 'free_trial',
				subscription_status TEXT NOT NULL DEFAULT 'active',
				trial_ends_at DATETIME,
				generations_used INTEGER NOT NULL DEFAULT 0,
				generations_limit INTEGER NOT NULL DEFAULT 8,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     3,
			Description: "Create credit batches table",
			SQL: `CREATE TABLE IF NOT EXISTS credit_batches (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				remaining INTEGER NOT NULL CHECK (remaining >= 0),
				granted INTEGER NOT NULL,
				expires_at DATETIME,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     4,
			Description: "Create anonymous usage table",
			SQL: `CREATE TABLE IF NOT EXISTS anonymous_usage (
				anonymous_id TEXT PRIMARY KEY,
				generations_used INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     5,
			Description: "Create usage events table",
			SQL: `CREATE TABLE IF NOT EXISTS usage_events (
				id TEXT PRIMARY KEY,
				user_id TEXT,
				anonymous_id TEXT,
				concept TEXT NOT NULL,
				audience TEXT NOT NULL,
				occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     6,
			Description: "Create analogies table",
			SQL: `CREATE TABLE IF NOT EXISTS analogies (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				concept TEXT NOT NULL,
				audience TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     7,
			Description: "Create webhook events table",
			SQL: `CREATE TABLE IF NOT EXISTS webhook_events (
				id TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				fingerprint TEXT UNIQUE NOT NULL,
				event_type TEXT NOT NULL,
				customer_email TEXT NOT NULL,
				product_id TEXT,
				received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Version:     8,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
				CREATE INDEX IF NOT EXISTS idx_credit_batches_user_id ON credit_batches(user_id);
				CREATE INDEX IF NOT EXISTS idx_usage_events_user_id ON usage_events(user_id);
				CREATE INDEX IF NOT EXISTS idx_usage_events_anonymous_id ON usage_events(anonymous_id);
				CREATE INDEX IF NOT EXISTS idx_analogies_user_id ON analogies(user_id);
				CREATE INDEX IF NOT EXISTS idx_webhook_events_fingerprint ON webhook_events(fingerprint);`,
		},
	}
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}

	migrations := GetMigrations(dbType)

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Description)

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %v", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}

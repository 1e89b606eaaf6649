package stubserver

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ConnectDB opens the stub database and applies migrations.
func ConnectDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            display_name TEXT NOT NULL DEFAULT '',
            followers INT NOT NULL DEFAULT 0,
            following INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS communities (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            icon_url TEXT NOT NULL DEFAULT '',
            members_count INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS community_members (
            community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(community_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS posts (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            author_id TEXT NOT NULL,
            community TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW(),
            votes_count INT NOT NULL DEFAULT 0,
            comments_count INT NOT NULL DEFAULT 0,
            image_url TEXT NOT NULL DEFAULT '',
            link TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS comments (
            id TEXT PRIMARY KEY,
            post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
            author_id TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            votes_count INT NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS votes (
            post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            direction TEXT NOT NULL,
            PRIMARY KEY(post_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
            post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(post_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS follows (
            follower_id TEXT NOT NULL,
            followee_id TEXT NOT NULL,
            PRIMARY KEY(follower_id, followee_id)
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            user1_id TEXT NOT NULL,
            user2_id TEXT NOT NULL,
            last_message TEXT NOT NULL DEFAULT '',
            last_activity_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(user1_id, user2_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            receiver_id TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            read BOOLEAN NOT NULL DEFAULT FALSE
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("stub database migrations applied")
	return nil
}

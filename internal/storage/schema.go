package storage

// Schema defines the SQLite database structure. Tables mirror spec §3's
// data model directly: one row per User, Session, Game and
// Notification. position_history is stored as a JSON array of
// hex-encoded fingerprints rather than a join table — it is only ever
// read or written whole, alongside the rest of a game's row, so a
// separate table would buy nothing but extra round trips through the
// write queue.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	email TEXT NOT NULL COLLATE NOCASE,
	email_verified INTEGER NOT NULL DEFAULT 0,
	verification_token TEXT,
	avatar_blob_id TEXT,
	elo INTEGER NOT NULL DEFAULT 1000,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_unique ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_elo ON users(elo DESC);

CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_token_hash ON sessions(token_hash);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mode INTEGER NOT NULL,
	host_id INTEGER NOT NULL,
	away_id INTEGER,
	invited_id INTEGER,
	main_thinking_time INTEGER NOT NULL,
	fixed_extra_time INTEGER NOT NULL,
	time_increment_per_turn INTEGER NOT NULL,
	host_time INTEGER NOT NULL,
	away_time INTEGER NOT NULL,
	host_offering_draw INTEGER NOT NULL DEFAULT 0,
	away_offering_draw INTEGER NOT NULL DEFAULT 0,
	current_turn INTEGER NOT NULL DEFAULT 0,
	turn_number INTEGER NOT NULL DEFAULT 0,
	board_fen TEXT NOT NULL,
	position_history TEXT NOT NULL,
	halfmove_clock INTEGER NOT NULL DEFAULT 0,
	winner INTEGER NOT NULL DEFAULT 0,
	conclusion INTEGER NOT NULL DEFAULT 0,
	opened_at DATETIME NOT NULL,
	started_at DATETIME,
	last_turn DATETIME,
	ended_at DATETIME,
	FOREIGN KEY (host_id) REFERENCES users(id),
	FOREIGN KEY (away_id) REFERENCES users(id),
	FOREIGN KEY (invited_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_games_host ON games(host_id);
CREATE INDEX IF NOT EXISTS idx_games_away ON games(away_id);
CREATE INDEX IF NOT EXISTS idx_games_invited ON games(invited_id);
CREATE INDEX IF NOT EXISTS idx_games_ended_at ON games(ended_at);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	sent_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	type_code TEXT NOT NULL,
	game_id INTEGER,
	read INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (game_id) REFERENCES games(id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, read);
`

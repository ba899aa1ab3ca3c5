package repository

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          VARCHAR(255) NOT NULL,
	email         VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(1024) NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS projects (
	id          BIGSERIAL PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner_id    BIGINT NOT NULL REFERENCES users(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role       VARCHAR(16) NOT NULL CHECK (role IN ('member', 'manager', 'analyst')),
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id          BIGSERIAL PRIMARY KEY,
	project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title       VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      VARCHAR(16) NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'done')),
	deadline    TIMESTAMPTZ,
	manager_id  BIGINT REFERENCES users(id) ON DELETE SET NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS task_executors (
	task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id         BIGSERIAL PRIMARY KEY,
	task_id    BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	author_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reports (
	id            BIGSERIAL PRIMARY KEY,
	report_type   VARCHAR(16) NOT NULL CHECK (report_type IN ('tasks', 'projects', 'users')),
	format        VARCHAR(8) NOT NULL CHECK (format IN ('json', 'pdf')),
	parameters    JSONB NOT NULL DEFAULT '{}',
	status        VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'failed')),
	file_path     TEXT,
	error_message TEXT,
	requested_by  BIGINT REFERENCES users(id) ON DELETE SET NULL,
	claimed_by    VARCHAR(128),
	timestamp     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ,
	CHECK (file_path IS NULL OR error_message IS NULL),
	CHECK (status <> 'pending' OR (file_path IS NULL AND error_message IS NULL)),
	CHECK (status <> 'completed' OR file_path IS NOT NULL),
	CHECK (status <> 'failed' OR error_message IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id);
CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp DESC);
`

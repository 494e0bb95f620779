package storage

const schemaSQL = `
-- One row per invocation; status moves running -> completed | failed | interrupted
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    seed_url TEXT NOT NULL,
    output_path TEXT NOT NULL,
    template_path TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'failed', 'interrupted')),
    product_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Products extracted during a run, in extraction order
CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    name TEXT,
    price TEXT,
    image_url TEXT,
    description TEXT,
    strategy TEXT,
    extracted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_run ON products(run_id);
CREATE INDEX IF NOT EXISTS idx_products_url ON products(url);

-- Links that could not be fetched or yielded no product
CREATE TABLE IF NOT EXISTS link_failures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    error_type TEXT NOT NULL,
    error_message TEXT,
    occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_link_failures_run ON link_failures(run_id);

-- Summary view for reporting
CREATE VIEW IF NOT EXISTS run_summary AS
SELECT
    r.id, r.seed_url, r.status, r.started_at, r.finished_at,
    (SELECT COUNT(*) FROM products p WHERE p.run_id = r.id) AS products,
    (SELECT COUNT(*) FROM link_failures f WHERE f.run_id = r.id) AS failures
FROM runs r;
`

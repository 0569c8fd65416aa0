package store

const schema = `
-- Monitored systems (upserted on every ingestion; never deleted)
CREATE TABLE IF NOT EXISTS systems (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    hostname    TEXT,
    version     TEXT,
    client_name TEXT,
    last_seen   INTEGER NOT NULL
);

-- Metric events (append-only; retention-swept)
CREATE TABLE IF NOT EXISTS metrics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    system_id   TEXT    NOT NULL,
    ts          INTEGER NOT NULL,
    metric_type TEXT    NOT NULL,
    metric_name TEXT    NOT NULL,
    value       REAL    NOT NULL,
    unit        TEXT,
    metadata    TEXT,
    FOREIGN KEY (system_id) REFERENCES systems(id)
);

-- Alerts (append-only; retained indefinitely)
CREATE TABLE IF NOT EXISTS alerts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    system_id    TEXT    NOT NULL,
    ts           INTEGER NOT NULL,
    severity     TEXT    NOT NULL,
    message      TEXT    NOT NULL,
    acknowledged INTEGER NOT NULL DEFAULT 0,
    ticket_id    TEXT,
    FOREIGN KEY (system_id) REFERENCES systems(id)
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_metrics_system_time ON metrics(system_id, ts);
CREATE INDEX IF NOT EXISTS idx_metrics_type_time ON metrics(metric_type, ts);
CREATE INDEX IF NOT EXISTS idx_alerts_ack ON alerts(acknowledged, severity);
`

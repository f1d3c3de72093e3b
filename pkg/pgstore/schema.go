package pgstore

// Schema is the table and index definition the store expects. It is exposed
// as a constant so the host service can apply it through its own migration
// tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id            TEXT PRIMARY KEY,
    recipient_id  TEXT NOT NULL,
    sender_id     TEXT,
    type          TEXT NOT NULL,
    title         TEXT NOT NULL,
    message       TEXT NOT NULL,
    data          JSONB,
    priority      TEXT NOT NULL DEFAULT 'normal',
    channels      JSONB NOT NULL DEFAULT '{}'::jsonb,
    in_app        JSONB NOT NULL DEFAULT '{"read": false}'::jsonb,
    is_read       BOOLEAN NOT NULL DEFAULT FALSE,
    is_archived   BOOLEAN NOT NULL DEFAULT FALSE,
    scheduled_for TIMESTAMPTZ,
    dispatched_at TIMESTAMPTZ,
    expires_at    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications (recipient_id, is_read, is_archived);

CREATE INDEX IF NOT EXISTS idx_notifications_created_at
    ON notifications (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_notifications_due
    ON notifications (scheduled_for)
    WHERE dispatched_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_notifications_expiry
    ON notifications (expires_at)
    WHERE expires_at IS NOT NULL;
`

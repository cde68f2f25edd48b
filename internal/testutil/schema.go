package testutil

// sqliteSchema mirrors db/pg in the SQLite dialect.
const sqliteSchema = `
CREATE TABLE aggregates (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    name_raw_record_id  INTEGER,
    display_name        TEXT,
    display_name_source INTEGER NOT NULL DEFAULT 0,
    lookup_key          TEXT NOT NULL DEFAULT '',
    photo_id            INTEGER,
    send_to_voicemail   BOOLEAN NOT NULL DEFAULT 0,
    custom_ringtone     TEXT,
    last_time_contacted INTEGER NOT NULL DEFAULT 0,
    times_contacted     INTEGER NOT NULL DEFAULT 0,
    starred             BOOLEAN NOT NULL DEFAULT 0,
    has_phone_number    BOOLEAN NOT NULL DEFAULT 0,
    is_restricted       BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE aggregated_presence (
    aggregate_id    INTEGER PRIMARY KEY,
    presence_status INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE raw_records (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    aggregate_id        INTEGER,
    account_type        TEXT NOT NULL DEFAULT '',
    account_name        TEXT NOT NULL DEFAULT '',
    source_id           TEXT,
    prefix              TEXT NOT NULL DEFAULT '',
    given_name          TEXT NOT NULL DEFAULT '',
    middle_name         TEXT NOT NULL DEFAULT '',
    family_name         TEXT NOT NULL DEFAULT '',
    suffix              TEXT NOT NULL DEFAULT '',
    display_name        TEXT NOT NULL DEFAULT '',
    display_name_source INTEGER NOT NULL DEFAULT 0,
    name_verified       BOOLEAN NOT NULL DEFAULT 0,
    starred             BOOLEAN NOT NULL DEFAULT 0,
    send_to_voicemail   BOOLEAN NOT NULL DEFAULT 0,
    custom_ringtone     TEXT,
    last_time_contacted INTEGER NOT NULL DEFAULT 0,
    times_contacted     INTEGER NOT NULL DEFAULT 0,
    is_restricted       BOOLEAN NOT NULL DEFAULT 0,
    aggregation_mode    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_raw_records_aggregate ON raw_records (aggregate_id);

CREATE TABLE raw_record_details (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    raw_record_id    INTEGER NOT NULL,
    kind             TEXT NOT NULL,
    value            TEXT NOT NULL DEFAULT '',
    normalized_value TEXT NOT NULL DEFAULT '',
    is_primary       BOOLEAN NOT NULL DEFAULT 0,
    is_super_primary BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX idx_raw_record_details_value ON raw_record_details (kind, normalized_value);

CREATE TABLE name_lookup (
    raw_record_id   INTEGER NOT NULL,
    normalized_name TEXT NOT NULL,
    name_kind       INTEGER NOT NULL,
    PRIMARY KEY (raw_record_id, normalized_name, name_kind)
);

CREATE TABLE aggregation_exceptions (
    raw_record_id_1 INTEGER NOT NULL,
    raw_record_id_2 INTEGER NOT NULL,
    kind            INTEGER NOT NULL,
    PRIMARY KEY (raw_record_id_1, raw_record_id_2)
);
`

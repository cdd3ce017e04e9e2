package store

// Database schema definitions for the reporting tables

const createMigrationMatrixTable = `
CREATE TABLE IF NOT EXISTS core_migration_matrix (
    source_state VARCHAR(50) NOT NULL,
    active_ns DOUBLE PRECISION,
    churn_ns DOUBLE PRECISION,
    new_spenders DOUBLE PRECISION,
    active_spenders DOUBLE PRECISION,
    churn_spenders DOUBLE PRECISION,
    active_users DOUBLE PRECISION,
    region VARCHAR(10) NOT NULL,
    date_state DATE NOT NULL,

    PRIMARY KEY (source_state, region, date_state)
);
`

const createStateSeriesTable = `
CREATE TABLE IF NOT EXISTS core_state_series (
    region VARCHAR(10) NOT NULL,
    date_state DATE NOT NULL,
    state VARCHAR(50) NOT NULL,
    users_count INTEGER NOT NULL,

    PRIMARY KEY (region, date_state, state),

    CHECK (users_count >= 0)
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_migration_matrix_date ON core_migration_matrix(date_state);
CREATE INDEX IF NOT EXISTS idx_state_series_date ON core_state_series(date_state);
`

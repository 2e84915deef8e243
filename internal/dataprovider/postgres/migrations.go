package postgres

var migrations = []string{
	reportsTable,
	reportsStartedIdx,
}

var reportsTable = `
CREATE TABLE IF NOT EXISTS reports
(
    id          BIGINT PRIMARY KEY NOT NULL,
    stack       TEXT[]             NOT NULL,
    workers     INTEGER            NOT NULL,
    ops         INTEGER            NOT NULL,
    reads       BIGINT             NOT NULL DEFAULT 0,
    writes      BIGINT             NOT NULL DEFAULT 0,
    reentries   BIGINT             NOT NULL DEFAULT 0,
    max_readers INTEGER            NOT NULL DEFAULT 0,
    violations  INTEGER            NOT NULL DEFAULT 0,
    keys        INTEGER            NOT NULL DEFAULT 0,
    started_at  TIMESTAMP          NOT NULL,
    elapsed     BIGINT             NOT NULL -- nanoseconds
);
`

var reportsStartedIdx = `CREATE INDEX IF NOT EXISTS idx_reports_started_at ON reports (started_at);`

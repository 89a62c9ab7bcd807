package repository

// ClickHouseSchema creates the ledger tables read by CHLedger.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS ad_spend (
		tenant_id     LowCardinality(String),
		channel       LowCardinality(String),
		campaign_id   String,
		campaign_name String,
		date          Date,
		cost          Decimal(18, 4),
		impressions   UInt64,
		clicks        UInt64,
		conversions   Float64,
		updated_at    DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	PARTITION BY toYYYYMM(date)
	ORDER BY (tenant_id, date, channel, campaign_id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		tenant_id      LowCardinality(String),
		order_id       String,
		order_datetime DateTime64(3, 'UTC'),
		total_amount   Decimal(18, 2),
		currency       LowCardinality(String),
		channel        String,
		utm_source     String,
		utm_campaign   String,
		customer_id    String,
		updated_at     DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	PARTITION BY toYYYYMM(order_datetime)
	ORDER BY (tenant_id, order_datetime, order_id)`,
}

// PostgresSchema creates the same ledger tables for PGLedger.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ad_spend (
		tenant_id     TEXT NOT NULL,
		channel       TEXT NOT NULL,
		campaign_id   TEXT NOT NULL DEFAULT '',
		campaign_name TEXT,
		date          DATE NOT NULL,
		cost          NUMERIC(18, 4) NOT NULL DEFAULT 0,
		impressions   BIGINT NOT NULL DEFAULT 0,
		clicks        BIGINT NOT NULL DEFAULT 0,
		conversions   DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, date, channel, campaign_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		tenant_id      TEXT NOT NULL,
		order_id       TEXT NOT NULL,
		order_datetime TIMESTAMPTZ NOT NULL,
		total_amount   NUMERIC(18, 2) NOT NULL DEFAULT 0,
		currency       TEXT NOT NULL DEFAULT 'USD',
		channel        TEXT,
		utm_source     TEXT,
		utm_campaign   TEXT,
		customer_id    TEXT,
		PRIMARY KEY (tenant_id, order_id)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_tenant_datetime_idx ON orders (tenant_id, order_datetime)`,
}

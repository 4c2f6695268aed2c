package database

// ChangeTables lists the tables whose writes are announced on <table>_changes.
var ChangeTables = []string{"shops", "products", "reviews"}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS shops (
		id                           UUID PRIMARY KEY,
		owner_id                     TEXT NOT NULL UNIQUE,
		name                         TEXT NOT NULL,
		owner_name                   TEXT NOT NULL,
		phone                        TEXT NOT NULL DEFAULT '',
		address                      TEXT NOT NULL,
		latitude                     DOUBLE PRECISION NOT NULL,
		longitude                    DOUBLE PRECISION NOT NULL,
		category                     TEXT NOT NULL,
		is_active                    BOOLEAN NOT NULL DEFAULT TRUE,
		general_discount_description TEXT NOT NULL DEFAULT '',
		has_general_discount         BOOLEAN NOT NULL DEFAULT FALSE,
		apply_discount_to_all        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                        UUID PRIMARY KEY,
		shop_id                   UUID NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		name                      TEXT NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		category                  TEXT NOT NULL DEFAULT '',
		image_url                 TEXT NOT NULL DEFAULT '',
		price                     NUMERIC(12,2) NOT NULL CHECK (price > 0),
		original_price            NUMERIC(12,2),
		is_on_sale                BOOLEAN NOT NULL DEFAULT FALSE,
		sale_percentage           INTEGER NOT NULL DEFAULT 0 CHECK (sale_percentage BETWEEN 0 AND 100),
		show_sale_alert           BOOLEAN NOT NULL DEFAULT FALSE,
		stock_status              TEXT NOT NULL DEFAULT 'in_stock'
			CONSTRAINT products_stock_status_check CHECK (stock_status IN ('in_stock', 'limited', 'out_of_stock')),
		stock_quantity            INTEGER,
		restock_date              TIMESTAMPTZ,
		special_offer_description TEXT NOT NULL DEFAULT '',
		has_special_offer         BOOLEAN NOT NULL DEFAULT FALSE,
		use_shop_discount         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT products_limited_quantity_check CHECK (stock_status <> 'limited' OR stock_quantity > 0)
	)`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'products_stock_status_check') THEN
			ALTER TABLE products ADD CONSTRAINT products_stock_status_check
				CHECK (stock_status IN ('in_stock', 'limited', 'out_of_stock'));
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'products_limited_quantity_check') THEN
			ALTER TABLE products ADD CONSTRAINT products_limited_quantity_check
				CHECK (stock_status <> 'limited' OR stock_quantity > 0);
		END IF;
	END;
	$$`,
	`CREATE INDEX IF NOT EXISTS idx_products_shop_id ON products(shop_id)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		user_name  TEXT NOT NULL DEFAULT '',
		rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, user_id)
	)`,
	// The optional trigger argument names the column sent as recordId.
	`CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
	DECLARE
		key_col TEXT := COALESCE(TG_ARGV[0], 'id');
		rec_id  TEXT;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			rec_id := to_jsonb(OLD) ->> key_col;
		ELSE
			rec_id := to_jsonb(NEW) ->> key_col;
		END IF;
		PERFORM pg_notify(TG_TABLE_NAME || '_changes', json_build_object(
			'table', TG_TABLE_NAME,
			'operation', TG_OP,
			'recordId', rec_id,
			'at', NOW()
		)::text);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS shops_notify_change ON shops`,
	`CREATE TRIGGER shops_notify_change AFTER INSERT OR UPDATE OR DELETE ON shops
		FOR EACH ROW EXECUTE FUNCTION notify_table_change()`,
	`DROP TRIGGER IF EXISTS products_notify_change ON products`,
	`CREATE TRIGGER products_notify_change AFTER INSERT OR UPDATE OR DELETE ON products
		FOR EACH ROW EXECUTE FUNCTION notify_table_change()`,
	`DROP TRIGGER IF EXISTS reviews_notify_change ON reviews`,
	`CREATE TRIGGER reviews_notify_change AFTER INSERT OR UPDATE OR DELETE ON reviews
		FOR EACH ROW EXECUTE FUNCTION notify_table_change('product_id')`,
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/delivro/shipment/pkg/shipment"
)

// NewPool creates and pings a new pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS shipments (
    id                    TEXT PRIMARY KEY,
    carrier_name          TEXT NOT NULL,
    cancelled             BOOLEAN NOT NULL DEFAULT FALSE,
    cash_on_delivery      BOOLEAN NOT NULL DEFAULT FALSE,
    is_return             BOOLEAN NOT NULL DEFAULT FALSE,
    enclosed_return_label BOOLEAN NOT NULL DEFAULT FALSE,
    sales_channel_id      TEXT NOT NULL DEFAULT '',
    order_ids             TEXT[] NOT NULL DEFAULT '{}',
    sender                JSONB NOT NULL,
    receiver              JSONB NOT NULL,
    parcels               JSONB NOT NULL,
    tracking_codes        JSONB NOT NULL DEFAULT '[]',
    config                JSONB NOT NULL DEFAULT '{}',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS shipments_order_ids_idx ON shipments USING GIN (order_ids);

CREATE TABLE IF NOT EXISTS orders (
    id                    TEXT PRIMARY KEY,
    sales_channel_id      TEXT NOT NULL DEFAULT '',
    currency              TEXT NOT NULL DEFAULT '',
    shipping_total        DOUBLE PRECISION NOT NULL DEFAULT 0,
    amount_total          DOUBLE PRECISION NOT NULL DEFAULT 0,
    payment_method_id     TEXT NOT NULL DEFAULT '',
    delivery_address      JSONB NOT NULL,
    primary_delivery      JSONB,
    invoices              JSONB NOT NULL DEFAULT '[]',
    items                 JSONB NOT NULL DEFAULT '[]',
    return_tracking_codes TEXT NOT NULL DEFAULT ''
);
`

// Migrate creates the tables this package owns.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// PostgresShipmentStore is the PostgreSQL shipment.ShipmentStore. Nested
// documents (addresses, parcels, tracking codes, carrier config) live in
// JSONB columns. Statements join a surrounding PgxTxRunner transaction.
type PostgresShipmentStore struct {
	pool *pgxpool.Pool
}

var _ shipment.ShipmentStore = (*PostgresShipmentStore)(nil)

// NewPostgresShipmentStore creates a store on the given pool.
func NewPostgresShipmentStore(pool *pgxpool.Pool) *PostgresShipmentStore {
	return &PostgresShipmentStore{pool: pool}
}

const shipmentColumns = `id, carrier_name, cancelled, cash_on_delivery, is_return,
	enclosed_return_label, sales_channel_id, order_ids, sender, receiver,
	parcels, tracking_codes, config`

func (s *PostgresShipmentStore) FindShipment(ctx context.Context, shipmentID string) (*shipment.Shipment, error) {
	row := queryTarget(ctx, s.pool).QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID)
	sh, err := scanShipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shipment.ErrShipmentNotFound, shipmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment %s: %w", shipmentID, err)
	}
	return sh, nil
}

func (s *PostgresShipmentStore) FindShipmentsByOrder(ctx context.Context, orderID string) ([]*shipment.Shipment, error) {
	rows, err := queryTarget(ctx, s.pool).Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE $1 = ANY(order_ids) ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("find shipments for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []*shipment.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("find shipments for order %s: %w", orderID, err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *PostgresShipmentStore) CreateShipment(ctx context.Context, sh *shipment.Shipment) error {
	sender, receiver, parcels, codes, cfg, err := marshalShipmentDocs(sh)
	if err != nil {
		return err
	}
	_, err = queryTarget(ctx, s.pool).Exec(ctx, `
		INSERT INTO shipments (id, carrier_name, cancelled, cash_on_delivery, is_return,
			enclosed_return_label, sales_channel_id, order_ids, sender, receiver,
			parcels, tracking_codes, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sh.ID, sh.CarrierName, sh.Cancelled, sh.CashOnDelivery, sh.IsReturn,
		sh.EnclosedReturnLabel, sh.SalesChannelID, sh.OrderIDs, sender, receiver,
		parcels, codes, cfg)
	if err != nil {
		return fmt.Errorf("create shipment %s: %w", sh.ID, err)
	}
	return nil
}

func (s *PostgresShipmentStore) UpdateShipment(ctx context.Context, sh *shipment.Shipment) error {
	sender, receiver, parcels, codes, cfg, err := marshalShipmentDocs(sh)
	if err != nil {
		return err
	}
	ct, err := queryTarget(ctx, s.pool).Exec(ctx, `
		UPDATE shipments
		SET carrier_name = $2, cancelled = $3, cash_on_delivery = $4, is_return = $5,
			enclosed_return_label = $6, sales_channel_id = $7, order_ids = $8,
			sender = $9, receiver = $10, parcels = $11, tracking_codes = $12,
			config = $13, updated_at = now()
		WHERE id = $1`,
		sh.ID, sh.CarrierName, sh.Cancelled, sh.CashOnDelivery, sh.IsReturn,
		sh.EnclosedReturnLabel, sh.SalesChannelID, sh.OrderIDs, sender, receiver,
		parcels, codes, cfg)
	if err != nil {
		return fmt.Errorf("update shipment %s: %w", sh.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shipment.ErrShipmentNotFound, sh.ID)
	}
	return nil
}

func (s *PostgresShipmentStore) DeleteShipments(ctx context.Context, shipmentIDs ...string) error {
	if len(shipmentIDs) == 0 {
		return nil
	}
	_, err := queryTarget(ctx, s.pool).Exec(ctx,
		`DELETE FROM shipments WHERE id = ANY($1)`, shipmentIDs)
	if err != nil {
		return fmt.Errorf("delete shipments: %w", err)
	}
	return nil
}

func marshalShipmentDocs(sh *shipment.Shipment) (sender, receiver, parcels, codes, cfg []byte, err error) {
	if sender, err = json.Marshal(sh.Sender); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal sender: %w", err)
	}
	if receiver, err = json.Marshal(sh.Receiver); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal receiver: %w", err)
	}
	if sh.Parcels == nil {
		parcels = []byte("[]")
	} else if parcels, err = json.Marshal(sh.Parcels); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal parcels: %w", err)
	}
	if sh.TrackingCodes == nil {
		codes = []byte("[]")
	} else if codes, err = json.Marshal(sh.TrackingCodes); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal tracking codes: %w", err)
	}
	if sh.Config == nil {
		cfg = []byte("{}")
	} else if cfg, err = json.Marshal(sh.Config); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal config: %w", err)
	}
	return sender, receiver, parcels, codes, cfg, nil
}

func scanShipment(row pgx.Row) (*shipment.Shipment, error) {
	var (
		sh                                  shipment.Shipment
		sender, receiver, parcels, tcs, cfg []byte
	)
	err := row.Scan(&sh.ID, &sh.CarrierName, &sh.Cancelled, &sh.CashOnDelivery,
		&sh.IsReturn, &sh.EnclosedReturnLabel, &sh.SalesChannelID, &sh.OrderIDs,
		&sender, &receiver, &parcels, &tcs, &cfg)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sender, &sh.Sender); err != nil {
		return nil, fmt.Errorf("unmarshal sender: %w", err)
	}
	if err := json.Unmarshal(receiver, &sh.Receiver); err != nil {
		return nil, fmt.Errorf("unmarshal receiver: %w", err)
	}
	if err := json.Unmarshal(parcels, &sh.Parcels); err != nil {
		return nil, fmt.Errorf("unmarshal parcels: %w", err)
	}
	if err := json.Unmarshal(tcs, &sh.TrackingCodes); err != nil {
		return nil, fmt.Errorf("unmarshal tracking codes: %w", err)
	}
	if err := json.Unmarshal(cfg, &sh.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &sh, nil
}

// PostgresOrderStore is the PostgreSQL shipment.OrderStore. Tracking-code
// writes require the elevated system scope.
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

var _ shipment.OrderStore = (*PostgresOrderStore)(nil)

// NewPostgresOrderStore creates a store on the given pool.
func NewPostgresOrderStore(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{pool: pool}
}

func (s *PostgresOrderStore) FindOrder(ctx context.Context, orderID string) (*shipment.Order, error) {
	row := queryTarget(ctx, s.pool).QueryRow(ctx, `
		SELECT id, sales_channel_id, currency, shipping_total, amount_total,
			payment_method_id, delivery_address, primary_delivery, invoices,
			items, return_tracking_codes
		FROM orders WHERE id = $1`, orderID)

	var (
		o                                  shipment.Order
		address, delivery, invoices, items []byte
	)
	err := row.Scan(&o.ID, &o.SalesChannelID, &o.Currency, &o.ShippingTotal,
		&o.AmountTotal, &o.PaymentMethodID, &address, &delivery, &invoices,
		&items, &o.ReturnTrackingCodes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if err := json.Unmarshal(address, &o.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("unmarshal delivery address: %w", err)
	}
	if delivery != nil {
		o.PrimaryDelivery = &shipment.Delivery{}
		if err := json.Unmarshal(delivery, o.PrimaryDelivery); err != nil {
			return nil, fmt.Errorf("unmarshal primary delivery: %w", err)
		}
	}
	if err := json.Unmarshal(invoices, &o.Invoices); err != nil {
		return nil, fmt.Errorf("unmarshal invoices: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &o, nil
}

func (s *PostgresOrderStore) UpdateDeliveryTrackingCodes(ctx context.Context, scope shipment.WriteScope, orderID string, codes []string) error {
	if scope != shipment.ScopeSystem {
		return shipment.ErrElevatedScopeRequired
	}
	if codes == nil {
		codes = []string{}
	}
	encoded, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("marshal tracking codes: %w", err)
	}
	ct, err := queryTarget(ctx, s.pool).Exec(ctx, `
		UPDATE orders
		SET primary_delivery = jsonb_set(primary_delivery, '{TrackingCodes}', $2::jsonb)
		WHERE id = $1 AND primary_delivery IS NOT NULL`,
		orderID, string(encoded))
	if err != nil {
		return fmt.Errorf("update delivery tracking codes for order %s: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	return nil
}

func (s *PostgresOrderStore) UpdateReturnTrackingCodes(ctx context.Context, scope shipment.WriteScope, orderID string, joined string) error {
	if scope != shipment.ScopeSystem {
		return shipment.ErrElevatedScopeRequired
	}
	ct, err := queryTarget(ctx, s.pool).Exec(ctx, `
		UPDATE orders SET return_tracking_codes = $2 WHERE id = $1`,
		orderID, joined)
	if err != nil {
		return fmt.Errorf("update return tracking codes for order %s: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	return nil
}

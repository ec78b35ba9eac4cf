// Package bunstore provides a SQL Store implementation on the Bun ORM,
// supporting PostgreSQL and SQLite.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/hookline/hookline"
	"github.com/hookline/hookline/delivery"
	"github.com/hookline/hookline/id"
	hlstore "github.com/hookline/hookline/store"
	"github.com/hookline/hookline/webhook"
)

// compile-time interface check
var _ hlstore.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenPostgres opens a PostgreSQL-backed store using the lib/pq driver.
func OpenPostgres(dsn string) (*Store, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return New(bun.NewDB(sqlDB, pgdialect.New())), nil
}

// OpenSQLite opens a SQLite-backed store. Connections are capped at one
// so in-memory databases see a single shared connection.
func OpenSQLite(dsn string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return New(bun.NewDB(sqlDB, sqlitedialect.New())), nil
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables using Bun's CreateTable.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*subscriptionModel)(nil),
		(*recordModel)(nil),
		(*inboxModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	// Create indexes.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_hookline_webhooks_owner ON hookline_webhooks (owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_webhooks_inbox ON hookline_webhooks (inbox_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_deliveries_webhook ON hookline_deliveries (webhook_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_deliveries_owner ON hookline_deliveries (owner_id)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedInbox registers an inbox under an owner account, updating the owner
// if the inbox already exists. Inbox provisioning lives outside this
// module; callers mirror their inbox table in here.
func (s *Store) SeedInbox(ctx context.Context, inboxID, ownerID string) error {
	_, err := s.db.NewInsert().
		Model(&inboxModel{ID: inboxID, OwnerID: ownerID, CreatedAt: time.Now().UTC()}).
		On("CONFLICT (id) DO UPDATE").
		Set("owner_id = EXCLUDED.owner_id").
		Exec(ctx)
	return err
}

// ==================== Webhook Store ====================

func (s *Store) CreateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	_, err := s.db.NewInsert().Model(toSubscriptionModel(sub)).Exec(ctx)
	return err
}

func (s *Store) GetWebhook(ctx context.Context, whID id.ID) (*webhook.Subscription, error) {
	m := new(subscriptionModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", whID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hookline.ErrWebhookNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateWebhook(ctx context.Context, sub *webhook.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(toSubscriptionModel(sub)).
		ExcludeColumn("success_count", "failure_count", "last_delivery_at", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, whID id.ID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*recordModel)(nil)).
			Where("webhook_id = ?", whID.String()).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*subscriptionModel)(nil)).
			Where("id = ?", whID.String()).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return hookline.ErrWebhookNotFound
		}
		return nil
	})
}

func (s *Store) ListWebhooks(ctx context.Context, ownerID string, opts webhook.ListOpts) ([]*webhook.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models).Where("owner_id = ?", ownerID)

	if opts.InboxID != "" {
		q = q.Where("inbox_id = ?", opts.InboxID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at ASC", "id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*webhook.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) Resolve(ctx context.Context, ownerID, inboxID, eventType string) ([]*webhook.Subscription, error) {
	var models []subscriptionModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("owner_id = ?", ownerID).
		Where("active = ?", true).
		Order("created_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	// Pattern matching happens in Go; the query narrows to the owner's
	// active subscriptions only.
	var result []*webhook.Subscription
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		if sub.Matches(inboxID, eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, whID id.ID, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*subscriptionModel)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", whID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

func (s *Store) IncrementStats(ctx context.Context, whID id.ID, success bool, at time.Time) error {
	q := s.db.NewUpdate().
		Model((*subscriptionModel)(nil)).
		Set("last_delivery_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", whID.String())

	// The increment runs inside the UPDATE so concurrent sequences never
	// lose counts.
	if success {
		q = q.Set("success_count = success_count + 1")
	} else {
		q = q.Set("failure_count = failure_count + 1")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

func (s *Store) InboxOwner(ctx context.Context, inboxID string) (string, error) {
	m := new(inboxModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", inboxID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", hookline.ErrInboxNotFound
		}
		return "", err
	}
	return m.OwnerID, nil
}

// ==================== Delivery Store ====================

func (s *Store) CreateRecord(ctx context.Context, rec *delivery.Record) error {
	_, err := s.db.NewInsert().Model(toRecordModel(rec)).Exec(ctx)
	return err
}

func (s *Store) GetRecord(ctx context.Context, delID id.ID) (*delivery.Record, error) {
	m := new(recordModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", delID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hookline.ErrDeliveryNotFound
		}
		return nil, err
	}
	return fromRecordModel(m)
}

func (s *Store) ListRecords(ctx context.Context, whID id.ID, opts delivery.ListOpts) ([]*delivery.Record, error) {
	var models []recordModel
	q := s.db.NewSelect().Model(&models).Where("webhook_id = ?", whID.String())

	if opts.Success != nil {
		q = q.Where("success = ?", *opts.Success)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC", "id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Record, len(models))
	for i := range models {
		rec, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

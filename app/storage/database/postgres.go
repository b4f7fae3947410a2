package database

import (
	"context"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // also imports "github.com/lib/pq"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"migrator/app/models"
	"migrator/app/storage/migrations"
	"migrator/pkg/uuid"
)

type Postgres struct {
	DB *sqlx.DB
}

func Connect(cfg Config) (*Postgres, error) {
	connectionString := cfg.DBConnectionString()
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the database")
	}

	// auto-migrate the db
	if err = migrateDB(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to migrate the database")
	}

	pg := &Postgres{DB: db}
	return pg, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

func (p *Postgres) CreateWallet(ctx context.Context, wallet *NewWallet) (*Wallet, error) {
	id := uuid.NewUUID()
	result := &Wallet{
		Base: Base{
			ID:        id,
			CreatedAt: time.Now(),
		},
		NewWallet: *wallet,
	}

	_, err := p.DB.NamedExecContext(
		ctx,
		`INSERT INTO wallets (id, address, smart_wallet_address, created_at)
			VALUES (:id, :address, :smart_wallet_address, :created_at);`,
		result,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert a wallet")
	}
	return result, nil
}

func (p *Postgres) GetWallet(ctx context.Context, address string) (*Wallet, error) {
	result := new(Wallet)
	if err := p.DB.GetContext(
		ctx,
		result,
		"SELECT * FROM wallets WHERE LOWER(address) = LOWER($1) AND deleted_at IS NULL LIMIT 1;",
		address,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select a wallet")
	}
	return result, nil
}

// SaveTransferQueue replaces the stored snapshot of a wallet's queue. The
// previous snapshot is soft-deleted so confirmation history survives.
func (p *Postgres) SaveTransferQueue(
	ctx context.Context, address string, transfers []*models.AssetTransfer,
) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin a snapshot transaction")
	}

	if _, err = tx.ExecContext(
		ctx,
		"UPDATE asset_transfers SET deleted_at = NOW() WHERE LOWER(wallet_address) = LOWER($1) AND deleted_at IS NULL;",
		address,
	); err != nil {
		if rlbErr := tx.Rollback(); rlbErr != nil {
			return multierr.Append(err, rlbErr)
		}
		return errors.Wrap(err, "failed to drop a previous snapshot")
	}

	for _, transfer := range transfers {
		row := AssetTransferFromPublic(address, transfer)
		row.ID = uuid.NewUUID()
		row.CreatedAt = time.Now()

		if _, err = tx.NamedExecContext(
			ctx,
			`INSERT INTO asset_transfers (
				id, wallet_address, token, name, contract_address, decimals, token_type, token_id,
				draft_amount, amount, gas_limit, gas_price, raw_transaction, nonce, transaction_count,
				from_address, to_address, tx_hash, status, created_at
			) VALUES (
				:id, :wallet_address, :token, :name, :contract_address, :decimals, :token_type, :token_id,
				:draft_amount, :amount, :gas_limit, :gas_price, :raw_transaction, :nonce, :transaction_count,
				:from_address, :to_address, :tx_hash, :status, :created_at
			);`,
			row,
		); err != nil {
			if rlbErr := tx.Rollback(); rlbErr != nil {
				return multierr.Append(err, rlbErr)
			}
			return errors.Wrap(err, "failed to insert a transfer snapshot row")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit a snapshot transaction")
}

func (p *Postgres) GetTransferQueue(ctx context.Context, address string) ([]*models.AssetTransfer, error) {
	var rows []*AssetTransfer
	if err := p.DB.SelectContext(
		ctx,
		&rows,
		`SELECT * FROM asset_transfers
			WHERE LOWER(wallet_address) = LOWER($1) AND deleted_at IS NULL
			ORDER BY created_at;`,
		address,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select a transfer snapshot")
	}

	result := make([]*models.AssetTransfer, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ToPublic())
	}
	return result, nil
}

func (p *Postgres) CompleteMigration(ctx context.Context, address string, transferred int) error {
	_, err := p.DB.ExecContext(
		ctx,
		`UPDATE wallets SET migrated_at = NOW(), transferred_count = $2, updated_at = NOW()
			WHERE LOWER(address) = LOWER($1) AND deleted_at IS NULL;`,
		address, transferred,
	)
	return errors.Wrap(err, "failed to mark a migration completed")
}

func migrateDB(cfg Config) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.WithMessage(err, "failed to initialize a migration source")
	}

	connectionString := cfg.DBConnectionStringForMigration()
	migration, err := migrate.NewWithSourceInstance("iofs", src, connectionString)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize a migration instance")
	}

	err = migration.Up()
	if errors.Is(err, migrate.ErrNoChange) { // "no change" is not an error
		err = nil
	}
	return errors.WithMessage(err, "failed to execute migrations")
}

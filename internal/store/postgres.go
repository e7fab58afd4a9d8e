package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const proposalColumns = `
	id, created_at, updated_at, client_name, venue_name, city, state,
	start_date, end_date, delivery_time, strike_time, delivery_fee,
	discount, discount_name, client_folder_url, section_text, sales_lead,
	status, project_number
`

// ListProposals returns every proposal row in append order. Version
// resolution depends on scanning the full history, so there is no
// filtering or paging here.
func (s *PostgresStore) ListProposals(ctx context.Context) ([]ProposalRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+proposalColumns+` FROM proposals ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	items := make([]ProposalRow, 0)
	for rows.Next() {
		var item ProposalRow
		if err := scanProposal(rows, &item); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProposalByProjectNumber(ctx context.Context, projectNumber string) (ProposalRow, error) {
	var item ProposalRow
	row := s.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+`
		FROM proposals
		WHERE project_number = $1
		ORDER BY id DESC
		LIMIT 1
	`, projectNumber)
	if err := scanProposal(row, &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProposalRow{}, err
		}
		return ProposalRow{}, fmt.Errorf("get proposal %s: %w", projectNumber, err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(r rowScanner, item *ProposalRow) error {
	return r.Scan(
		&item.ID, &item.CreatedAt, &item.UpdatedAt, &item.ClientName,
		&item.VenueName, &item.City, &item.State, &item.StartDate,
		&item.EndDate, &item.DeliveryTime, &item.StrikeTime,
		&item.DeliveryFee, &item.Discount, &item.DiscountName,
		&item.ClientFolderURL, &item.SectionText, &item.SalesLead,
		&item.Status, &item.ProjectNumber,
	)
}

// AppendProposal inserts one new row and returns its id. Existing rows are
// never touched here; the only mutation of history is UpdateProposalStatus.
func (s *PostgresStore) AppendProposal(ctx context.Context, row ProposalRow) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO proposals (
			client_name, venue_name, city, state, start_date, end_date,
			delivery_time, strike_time, delivery_fee, discount, discount_name,
			client_folder_url, section_text, sales_lead, status, project_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		row.ClientName, row.VenueName, row.City, row.State, row.StartDate,
		row.EndDate, row.DeliveryTime, row.StrikeTime, row.DeliveryFee,
		row.Discount, row.DiscountName, row.ClientFolderURL, row.SectionText,
		row.SalesLead, row.Status, row.ProjectNumber,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append proposal: %w", err)
	}
	return id, nil
}

// UpdateProposalStatus rewrites the status cell of a single existing row.
// Used only by status propagation across prior versions of a lineage.
func (s *PostgresStore) UpdateProposalStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE proposals SET status=$2, updated_at=NOW() WHERE id=$1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update proposal %d status: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ListCatalog(ctx context.Context) ([]CatalogRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price, dimensions, file_ref
		FROM catalog_items
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	items := make([]CatalogRow, 0)
	for rows.Next() {
		var item CatalogRow
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.Dimensions, &item.FileRef); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return items, nil
}

// ReplaceCatalog swaps the whole catalog table for the given rows in one
// transaction. The importer always reloads the full workbook.
func (s *PostgresStore) ReplaceCatalog(ctx context.Context, items []CatalogRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear catalog: %w", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_items (name, category, price, dimensions, file_ref)
			VALUES ($1, $2, $3, $4, $5)
		`, item.Name, item.Category, item.Price, item.Dimensions, item.FileRef); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert catalog row %q: %w", item.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, account.ID, account.Email, account.DisplayName, account.PasswordHash, account.Role)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM accounts
		WHERE LOWER(email)=LOWER($1)
	`, email).Scan(&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.Role, &account.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, id string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at
		FROM accounts
		WHERE id=$1
	`, id).Scan(&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.Role, &account.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET account_id=EXCLUDED.account_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, accountID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (Account, error) {
	const query = `
		SELECT a.id, a.email, a.display_name, a.role
		FROM refresh_sessions rs
		JOIN accounts a ON a.id = rs.account_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var account Account
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&account.ID, &account.Email, &account.DisplayName, &account.Role)
	if err != nil {
		return Account{}, err
	}
	if account.Role == "" {
		account.Role = "editor"
	}
	return account, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

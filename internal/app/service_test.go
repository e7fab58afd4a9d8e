package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MaykerCreative/mayker-proposals/internal/accounts"
	"github.com/MaykerCreative/mayker-proposals/internal/config"
	"github.com/MaykerCreative/mayker-proposals/internal/export"
	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

type statusUpdate struct {
	id     int64
	status string
}

type fakeStore struct {
	proposals     []store.ProposalRow
	catalog       []store.CatalogRow
	accounts      map[string]store.Account
	sessions      map[string]string
	nextID        int64
	statusUpdates []statusUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]store.Account),
		sessions: make(map[string]string),
	}
}

func (f *fakeStore) ListProposals(context.Context) ([]store.ProposalRow, error) {
	return f.proposals, nil
}

func (f *fakeStore) GetProposalByProjectNumber(ctx context.Context, projectNumber string) (store.ProposalRow, error) {
	for i := len(f.proposals) - 1; i >= 0; i-- {
		if f.proposals[i].ProjectNumber == projectNumber {
			return f.proposals[i], nil
		}
	}
	return store.ProposalRow{}, sql.ErrNoRows
}

func (f *fakeStore) AppendProposal(ctx context.Context, row store.ProposalRow) (int64, error) {
	f.nextID++
	row.ID = f.nextID
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	f.proposals = append(f.proposals, row)
	return row.ID, nil
}

func (f *fakeStore) UpdateProposalStatus(ctx context.Context, id int64, status string) error {
	f.statusUpdates = append(f.statusUpdates, statusUpdate{id: id, status: status})
	for i := range f.proposals {
		if f.proposals[i].ID == id {
			f.proposals[i].Status = status
		}
	}
	return nil
}

func (f *fakeStore) ListCatalog(context.Context) ([]store.CatalogRow, error) {
	return f.catalog, nil
}

func (f *fakeStore) GetAccountByEmail(ctx context.Context, email string) (store.Account, error) {
	for _, account := range f.accounts {
		if account.Email == strings.ToLower(strings.TrimSpace(email)) {
			return account, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

func (f *fakeStore) GetAccountByID(ctx context.Context, id string) (store.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (f *fakeStore) CreateAccount(ctx context.Context, account store.Account) error {
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeStore) SaveRefreshSession(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	f.sessions[tokenHash] = accountID
	return nil
}

func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.Account, error) {
	accountID, ok := f.sessions[tokenHash]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return store.Account{ID: accountID}, nil
}

func (f *fakeStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func testConfig() config.Config {
	return config.Config{
		TokenSecret: "test-secret",
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
	}
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg:      testConfig(),
		store:    fs,
		sessions: fs,
		accounts: accounts.NewService(fs),
		export:   export.NewService(),
	}
}

func TestSubmitProposalNewClient(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)

	secJSON, _ := json.Marshal([]map[string]any{
		{"name": "Lounge", "products": []map[string]any{
			{"name": "Velvet Sofa", "quantity": 2},
		}},
	})

	result, err := svc.SubmitProposal(context.Background(), Submission{
		ClientName:   "Acme Corp",
		VenueName:    "The Foundry",
		SectionsJSON: string(secJSON),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.ClientName != "Acme Corp" {
		t.Fatalf("client name = %q, want unsuffixed", result.ClientName)
	}
	if result.ProjectNumber != "0001" {
		t.Fatalf("project number = %q, want 0001", result.ProjectNumber)
	}

	if len(fs.proposals) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(fs.proposals))
	}
	row := fs.proposals[0]
	if row.Status != "Pending" {
		t.Fatalf("status = %q, want default Pending", row.Status)
	}
	wantText := "Lounge\n- Velvet Sofa, 2\n"
	if row.SectionText != wantText {
		t.Fatalf("section text = %q, want %q", row.SectionText, wantText)
	}
}

func TestSubmitProposalCancelledPropagates(t *testing.T) {
	fs := newFakeStore()
	fs.proposals = []store.ProposalRow{
		{ID: 1, ClientName: "Acme Corp", Status: "Pending", ProjectNumber: "0007"},
		{ID: 2, ClientName: "Acme Corp (V2)", Status: "Pending", ProjectNumber: "0007"},
	}
	fs.nextID = 2
	svc := newTestService(fs)

	result, err := svc.SubmitProposal(context.Background(), Submission{
		ClientName: "Acme Corp",
		Status:     "Cancelled",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.ClientName != "Acme Corp (V3)" {
		t.Fatalf("client name = %q, want Acme Corp (V3)", result.ClientName)
	}
	if result.ProjectNumber != "0007" {
		t.Fatalf("project number = %q, want recovered 0007", result.ProjectNumber)
	}

	if len(fs.statusUpdates) != 2 {
		t.Fatalf("expected 2 status rewrites, got %d: %v", len(fs.statusUpdates), fs.statusUpdates)
	}
	for _, update := range fs.statusUpdates {
		if update.status != "Cancelled" {
			t.Fatalf("propagated status = %q, want Cancelled", update.status)
		}
	}
}

func TestSubmitProposalApprovedDoesNotPropagate(t *testing.T) {
	fs := newFakeStore()
	fs.proposals = []store.ProposalRow{
		{ID: 1, ClientName: "Acme Corp", Status: "Pending", ProjectNumber: "0007"},
		{ID: 2, ClientName: "Acme Corp (V2)", Status: "Pending", ProjectNumber: "0007"},
	}
	fs.nextID = 2
	svc := newTestService(fs)

	_, err := svc.SubmitProposal(context.Background(), Submission{
		ClientName: "Acme Corp",
		Status:     "Approved",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(fs.statusUpdates) != 0 {
		t.Fatalf("Approved must not rewrite prior versions, got %v", fs.statusUpdates)
	}
	if fs.proposals[0].Status != "Pending" || fs.proposals[1].Status != "Pending" {
		t.Fatal("prior versions must keep their status")
	}
	if got := fs.proposals[2].Status; got != "Approved" {
		t.Fatalf("new row status = %q, want Approved", got)
	}
}

func TestSubmitProposalValidation(t *testing.T) {
	svc := newTestService(newFakeStore())

	if _, err := svc.SubmitProposal(context.Background(), Submission{}); err == nil {
		t.Fatal("expected error for missing clientName")
	}

	_, err := svc.SubmitProposal(context.Background(), Submission{
		ClientName:   "Acme Corp",
		SectionsJSON: "{not json",
	})
	if err == nil {
		t.Fatal("expected error for bad sectionsJSON")
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestSubmitProposalCleansDatesAndTimes(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)

	_, err := svc.SubmitProposal(context.Background(), Submission{
		ClientName:   "Acme Corp",
		StartDate:    "2026-04-12T18:00:00Z",
		EndDate:      "2026-04-13",
		DeliveryTime: "9:00 AM",
		StrikeTime:   "whenever works",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	row := fs.proposals[0]
	if row.StartDate != "2026-04-12" {
		t.Fatalf("start date = %q, want time component stripped", row.StartDate)
	}
	if row.EndDate != "2026-04-13" {
		t.Fatalf("end date = %q", row.EndDate)
	}
	if row.DeliveryTime != "9:00 AM" {
		t.Fatalf("delivery time = %q, want pass-through", row.DeliveryTime)
	}
	if row.StrikeTime != "whenever works" {
		t.Fatalf("strike time = %q, want verbatim pass-through", row.StrikeTime)
	}
}

func TestListProposalsReadContract(t *testing.T) {
	fs := newFakeStore()
	fs.catalog = []store.CatalogRow{
		{Name: "Velvet Sofa", Price: "$300.00", Dimensions: `84" x 36"`, FileRef: "abc123"},
	}
	now := time.Now()
	fs.proposals = []store.ProposalRow{
		{
			ID: 1, CreatedAt: now, UpdatedAt: now,
			ClientName:    "Acme Corp",
			StartDate:     "2026-04-12",
			EndDate:       "2026-04-13",
			SectionText:   "Lounge\n- Velvet Sofa, 2\n",
			Status:        "Pending",
			ProjectNumber: "0001",
		},
		{ID: 2, CreatedAt: now, UpdatedAt: now, ClientName: "   "},
	}
	svc := newTestService(fs)

	payload, err := svc.ListProposals(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	proposals, ok := payload["proposals"].([]ProposalView)
	if !ok {
		t.Fatalf("proposals payload has type %T", payload["proposals"])
	}
	if len(proposals) != 1 {
		t.Fatalf("expected blank-client row excluded, got %d proposals", len(proposals))
	}

	view := proposals[0]
	if view.EventDate != "2026-04-12 - 2026-04-13" {
		t.Fatalf("event date = %q", view.EventDate)
	}
	if !strings.Contains(view.SectionsJSON, `"price":300`) {
		t.Fatalf("sectionsJSON not enriched from catalog: %s", view.SectionsJSON)
	}
	if !strings.Contains(view.SectionsJSON, `"quantity":2`) {
		t.Fatalf("sectionsJSON missing quantity: %s", view.SectionsJSON)
	}

	if _, ok := payload["catalog"]; !ok {
		t.Fatal("read contract must include the catalog list")
	}
}

func TestSessionLifecycle(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "lee@mayker.com", "hunter2hunter2", "Lee")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("signup must issue tokens")
	}

	parsed, err := svc.SessionFromToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}
	if parsed.UserName != "Lee" {
		t.Fatalf("user name = %q", parsed.UserName)
	}

	if _, err := svc.Login(ctx, "lee@mayker.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure for wrong password")
	}

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == session.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); err == nil {
		t.Fatal("old refresh token must be revoked after use")
	}
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MaykerCreative/mayker-proposals/internal/accounts"
	"github.com/MaykerCreative/mayker-proposals/internal/auth"
	"github.com/MaykerCreative/mayker-proposals/internal/catalog"
	"github.com/MaykerCreative/mayker-proposals/internal/config"
	"github.com/MaykerCreative/mayker-proposals/internal/export"
	"github.com/MaykerCreative/mayker-proposals/internal/folders"
	"github.com/MaykerCreative/mayker-proposals/internal/lineage"
	"github.com/MaykerCreative/mayker-proposals/internal/search"
	"github.com/MaykerCreative/mayker-proposals/internal/sections"
	"github.com/MaykerCreative/mayker-proposals/internal/store"
	"github.com/MaykerCreative/mayker-proposals/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the slice of the postgres store the service depends on.
type dataStore interface {
	ListProposals(context.Context) ([]store.ProposalRow, error)
	GetProposalByProjectNumber(context.Context, string) (store.ProposalRow, error)
	AppendProposal(context.Context, store.ProposalRow) (int64, error)
	UpdateProposalStatus(context.Context, int64, string) error
	ListCatalog(context.Context) ([]store.CatalogRow, error)
	GetAccountByEmail(context.Context, string) (store.Account, error)
	GetAccountByID(context.Context, string) (store.Account, error)
	CreateAccount(context.Context, store.Account) error
	Ping(ctx context.Context) error
}

// sessionStore holds refresh tokens. Redis in production, the postgres store
// implements the same methods as a fallback.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.Account, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	accounts *accounts.Service
	search   *search.Service
	folders  *folders.Service
	export   *export.Service
}

// New wires the service with refresh tokens held in postgres.
func New(cfg config.Config, dataStore *store.PostgresStore, searchSvc *search.Service, folderSvc *folders.Service) *Service {
	return NewWithSessionStore(cfg, dataStore, dataStore, searchSvc, folderSvc)
}

// NewWithSessionStore wires the service with an external refresh-token store
// (Redis in production).
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchSvc *search.Service, folderSvc *folders.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		accounts: accounts.NewService(dataStore),
		search:   searchSvc,
		folders:  folderSvc,
		export:   export.NewService(),
	}
}

// Submission is the write-contract payload. Sections travel as a JSON string
// of Section[]; everything else is free text from the submission form.
type Submission struct {
	ClientName      string `json:"clientName"`
	VenueName       string `json:"venueName"`
	City            string `json:"city"`
	State           string `json:"state"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	DeliveryTime    string `json:"deliveryTime"`
	StrikeTime      string `json:"strikeTime"`
	DeliveryFee     string `json:"deliveryFee"`
	Discount        string `json:"discount"`
	DiscountName    string `json:"discountName"`
	ClientFolderURL string `json:"clientFolderURL"`
	SalesLead       string `json:"salesLead"`
	Status          string `json:"status"`
	ProjectNumber   string `json:"projectNumber"`
	SectionsJSON    string `json:"sectionsJSON"`
}

// SubmitResult is the write-contract success payload.
type SubmitResult struct {
	Success       bool   `json:"success"`
	ClientName    string `json:"clientName"`
	ProjectNumber string `json:"projectNumber"`
	Message       string `json:"message"`
}

// ProposalView is one proposal in the read-contract listing.
type ProposalView struct {
	Timestamp       string `json:"timestamp"`
	LastUpdated     string `json:"lastUpdated"`
	ClientName      string `json:"clientName"`
	VenueName       string `json:"venueName"`
	City            string `json:"city"`
	State           string `json:"state"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	EventDate       string `json:"eventDate"`
	DeliveryTime    string `json:"deliveryTime"`
	StrikeTime      string `json:"strikeTime"`
	DeliveryFee     string `json:"deliveryFee"`
	Discount        string `json:"discount"`
	DiscountName    string `json:"discountName"`
	ClientFolderURL string `json:"clientFolderURL"`
	SalesLead       string `json:"salesLead"`
	Status          string `json:"status"`
	ProjectNumber   string `json:"projectNumber"`
	SectionsJSON    string `json:"sectionsJSON"`
}

// ListProposals implements the read contract: every stored proposal row with
// a non-empty client name, sections re-parsed and re-enriched against the
// current catalog, plus the display-sorted catalog itself.
func (s *Service) ListProposals(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.ListProposals(ctx)
	if err != nil {
		return nil, err
	}
	catalogRows, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	idx := catalog.BuildIndex(catalogRows, s.cfg.ImageURLTemplate)

	proposals := make([]ProposalView, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.ClientName) == "" {
			continue
		}
		parsed := sections.Parse(row.SectionText, idx)
		encoded, err := json.Marshal(parsed)
		if err != nil {
			encoded = []byte("[]")
		}
		proposals = append(proposals, ProposalView{
			Timestamp:       row.CreatedAt.Format(time.RFC3339),
			LastUpdated:     row.UpdatedAt.Format(time.RFC3339),
			ClientName:      row.ClientName,
			VenueName:       row.VenueName,
			City:            row.City,
			State:           row.State,
			StartDate:       row.StartDate,
			EndDate:         row.EndDate,
			EventDate:       eventDate(row.StartDate, row.EndDate),
			DeliveryTime:    row.DeliveryTime,
			StrikeTime:      row.StrikeTime,
			DeliveryFee:     row.DeliveryFee,
			Discount:        row.Discount,
			DiscountName:    row.DiscountName,
			ClientFolderURL: row.ClientFolderURL,
			SalesLead:       row.SalesLead,
			Status:          row.Status,
			ProjectNumber:   row.ProjectNumber,
			SectionsJSON:    string(encoded),
		})
	}

	return map[string]any{
		"proposals": proposals,
		"catalog":   catalog.DisplayList(catalogRows, s.cfg.ImageURLTemplate),
	}, nil
}

// Catalog returns the display-sorted catalog on its own.
func (s *Service) Catalog(ctx context.Context) (map[string]any, error) {
	catalogRows, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"catalog": catalog.DisplayList(catalogRows, s.cfg.ImageURLTemplate),
	}, nil
}

// SubmitProposal appends one new row per submission. It resolves the version
// lineage against the full history first, applies any status propagation to
// prior versions, then writes the new row. The read-resolve-write sequence
// runs without a table lock; concurrent submissions can race (see DESIGN.md).
func (s *Service) SubmitProposal(ctx context.Context, sub Submission) (SubmitResult, error) {
	clientName := strings.TrimSpace(sub.ClientName)
	if clientName == "" {
		return SubmitResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "clientName is required", nil)
	}

	status := strings.TrimSpace(sub.Status)
	if status == "" {
		status = "Pending"
	}

	var submitted []sections.Section
	if strings.TrimSpace(sub.SectionsJSON) != "" {
		if err := json.Unmarshal([]byte(sub.SectionsJSON), &submitted); err != nil {
			return SubmitResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "sectionsJSON is not valid JSON", nil)
		}
	}
	sectionText := sections.Format(submitted)

	rows, err := s.store.ListProposals(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	resolution := lineage.Resolve(rows, clientName, status, sub.ProjectNumber)

	for _, update := range resolution.StatusUpdates {
		if err := s.store.UpdateProposalStatus(ctx, update.RowID, update.Status); err != nil {
			return SubmitResult{}, err
		}
	}

	folderURL := strings.TrimSpace(sub.ClientFolderURL)
	if folderURL == "" {
		url, err := s.folders.EnsureClientFolder(ctx, resolution.BaseName)
		if err != nil {
			// Folder provisioning is best effort; the proposal still saves.
			log.Printf("proposals: provision folder for %q: %v", resolution.BaseName, err)
		} else {
			folderURL = url
		}
	}

	row := store.ProposalRow{
		ClientName:      resolution.ClientName,
		VenueName:       strings.TrimSpace(sub.VenueName),
		City:            strings.TrimSpace(sub.City),
		State:           strings.TrimSpace(sub.State),
		StartDate:       cleanDate(sub.StartDate),
		EndDate:         cleanDate(sub.EndDate),
		DeliveryTime:    passThroughTime("delivery", sub.DeliveryTime),
		StrikeTime:      passThroughTime("strike", sub.StrikeTime),
		DeliveryFee:     strings.TrimSpace(sub.DeliveryFee),
		Discount:        strings.TrimSpace(sub.Discount),
		DiscountName:    strings.TrimSpace(sub.DiscountName),
		ClientFolderURL: folderURL,
		SectionText:     sectionText,
		SalesLead:       strings.TrimSpace(sub.SalesLead),
		Status:          status,
		ProjectNumber:   resolution.ProjectNumber,
	}

	id, err := s.store.AppendProposal(ctx, row)
	if err != nil {
		return SubmitResult{}, err
	}

	if s.search != nil {
		s.search.IndexProposal(searchRecord(id, row))
	}

	return SubmitResult{
		Success:       true,
		ClientName:    resolution.ClientName,
		ProjectNumber: resolution.ProjectNumber,
		Message:       fmt.Sprintf("Saved %s under project %s", resolution.ClientName, resolution.ProjectNumber),
	}, nil
}

// Search runs a full-text query over the proposal history.
func (s *Service) Search(ctx context.Context, q, filterStatus string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{
		Text:         q,
		FilterStatus: filterStatus,
		Limit:        limit,
		Offset:       offset,
	})
}

// ReindexSearch pushes the full proposal history into the search index.
// Called once at startup.
func (s *Service) ReindexSearch(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	rows, err := s.store.ListProposals(ctx)
	if err != nil {
		return err
	}
	records := make([]search.ProposalRecord, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.ClientName) == "" {
			continue
		}
		records = append(records, searchRecord(row.ID, row))
	}
	s.search.ReindexAll(records)
	return nil
}

// ExportProposal renders the proposal with the given project number as a PDF.
// The latest row under that number wins, matching the listing's notion of the
// current version.
func (s *Service) ExportProposal(ctx context.Context, projectNumber string) (*export.Result, error) {
	row, err := s.store.GetProposalByProjectNumber(ctx, projectNumber)
	if err != nil {
		return nil, err
	}
	catalogRows, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	idx := catalog.BuildIndex(catalogRows, s.cfg.ImageURLTemplate)
	parsed := sections.Parse(row.SectionText, idx)

	secInputs := make([]export.SectionInput, 0, len(parsed))
	for _, sec := range parsed {
		input := export.SectionInput{Name: sec.Name}
		for _, p := range sec.Products {
			input.Products = append(input.Products, export.ProductInput{
				Name:     p.Name,
				Quantity: p.Quantity,
				Price:    p.Price,
			})
		}
		secInputs = append(secInputs, input)
	}

	return s.export.Export(export.ProposalInfo{
		ClientName:    row.ClientName,
		ProjectNumber: row.ProjectNumber,
		VenueName:     row.VenueName,
		City:          row.City,
		State:         row.State,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		DeliveryTime:  row.DeliveryTime,
		StrikeTime:    row.StrikeTime,
		SalesLead:     row.SalesLead,
		Status:        row.Status,
		DeliveryFee:   row.DeliveryFee,
		Discount:      row.Discount,
		DiscountName:  row.DiscountName,
	}, secInputs)
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	account, err := s.accounts.SignUp(ctx, accounts.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, account)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	account, err := s.accounts.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, account)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	account, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// The redis store only holds the account id; fill in the rest.
	if account.Email == "" && account.ID != "" {
		if full, err := s.store.GetAccountByID(ctx, account.ID); err == nil {
			account = full
		}
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, account)
}

func (s *Service) issueSession(ctx context.Context, account store.Account) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   account.ID,
		Email: account.Email,
		Name:  account.DisplayName,
		Role:  account.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), account.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       account.ID,
		UserName:     account.DisplayName,
		Role:         account.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      claims.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func searchRecord(id int64, row store.ProposalRow) search.ProposalRecord {
	return search.ProposalRecord{
		ID:            strconv.FormatInt(id, 10),
		ClientName:    row.ClientName,
		VenueName:     row.VenueName,
		City:          row.City,
		SalesLead:     row.SalesLead,
		Status:        row.Status,
		ProjectNumber: row.ProjectNumber,
		SectionText:   row.SectionText,
	}
}

// eventDate is the listing's display date: the start date, with the end date
// appended when it differs.
func eventDate(startDate, endDate string) string {
	start := strings.TrimSpace(startDate)
	end := strings.TrimSpace(endDate)
	if start == "" {
		return end
	}
	if end == "" || end == start {
		return start
	}
	return start + " - " + end
}

// cleanDate keeps only the date portion of a submitted date string. RFC 3339
// timestamps and "date T time" shapes lose their time component; anything
// else passes through verbatim.
func cleanDate(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format("2006-01-02")
	}
	if i := strings.Index(v, "T"); i > 0 {
		if _, err := time.Parse("2006-01-02", v[:i]); err == nil {
			return v[:i]
		}
	}
	return v
}

// passThroughTime returns the submitted time string unchanged. The expected
// shape is two tokens like "9:00 AM"; anything else is logged and kept as is,
// never rejected.
func passThroughTime(label, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	fields := strings.Fields(v)
	ok := len(fields) == 2 && strings.Contains(fields[0], ":")
	if ok {
		meridiem := strings.ToUpper(fields[1])
		ok = meridiem == "AM" || meridiem == "PM"
	}
	if !ok {
		log.Printf("proposals: unexpected %s time format %q, storing verbatim", label, v)
	}
	return v
}

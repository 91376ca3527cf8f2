package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"accrapos/internal/cart"
	"accrapos/internal/catalog"
	"accrapos/internal/domain"
	"accrapos/internal/ledger"
	"accrapos/internal/receipt"
	"accrapos/internal/sale"
	"accrapos/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	ErrCommitInFlight = errors.New("a commit is already in flight for this terminal")
	ErrForbidden      = errors.New("forbidden")
)

// session is one terminal's cart plus its commit guard. The guard keeps a
// single user action mapped to a single commit call; commit itself is not
// blindly retryable.
type session struct {
	cart       *cart.Cart
	mu         sync.Mutex
	committing bool
}

type Service struct {
	repo     store.Repository
	lookup   *catalog.Lookup
	engine   *sale.Engine
	ledger   *ledger.View
	renderer *receipt.Renderer

	sessionMu sync.Mutex
	sessions  map[string]*session
}

func New(repo store.Repository, lookup *catalog.Lookup, engine *sale.Engine, renderer *receipt.Renderer) *Service {
	if renderer == nil {
		renderer = receipt.NewRenderer("", "")
	}
	return &Service{
		repo:     repo,
		lookup:   lookup,
		engine:   engine,
		ledger:   ledger.NewView(repo),
		renderer: renderer,
		sessions: make(map[string]*session),
	}
}

func (s *Service) session(terminalID string) *session {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	sess, ok := s.sessions[terminalID]
	if !ok {
		sess = &session{cart: cart.New()}
		s.sessions[terminalID] = sess
	}
	return sess
}

// --- catalog ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, false)
}

func (s *Service) GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.Product{}, err
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Barcode == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if !req.RetailPrice.IsPositive() || req.CostPrice.IsNegative() || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_create", "product", created.ID.String(),
		fmt.Sprintf("name=%s,price=%s,stock=%d", created.Name, created.RetailPrice.StringFixed(2), created.StockQuantity))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id domain.ProductID, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.Product{}, err
	}
	updated, err := s.repo.UpdateProduct(ctx, id, req)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_update", "product", updated.ID.String(), "")
	return *updated, nil
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListLowStockProducts(ctx)
}

// ResolveScan handles confirm-on-enter input from the scan field: an exact
// code match first for barcode-shaped input, name search otherwise.
func (s *Service) ResolveScan(ctx context.Context, input string) ([]domain.Product, error) {
	return s.lookup.Resolve(ctx, input, catalog.ConfirmScanMinLength, catalog.DefaultSearchLimit)
}

// Suggest backs the debounced live search.
func (s *Service) Suggest(ctx context.Context, fragment string, limit int) ([]domain.Product, error) {
	return s.lookup.Search(ctx, fragment, limit)
}

// --- cart ---

func (s *Service) ViewCart(_ context.Context, terminalID string) (domain.CartView, error) {
	if strings.TrimSpace(terminalID) == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}
	sess := s.session(terminalID)
	return domain.CartView{
		TerminalID: terminalID,
		Lines:      sess.cart.Lines(),
		Total:      sess.cart.Total(),
	}, nil
}

// AddToCart resolves input to exactly one product and merges it into the
// terminal's cart. Ambiguous input (several name matches) is returned as
// candidates without touching the cart.
func (s *Service) AddToCart(ctx context.Context, terminalID string, input string) (domain.CartView, []domain.Product, error) {
	if strings.TrimSpace(terminalID) == "" {
		return domain.CartView{}, nil, store.ErrInvalidInput
	}
	matches, err := s.ResolveScan(ctx, input)
	if err != nil {
		return domain.CartView{}, nil, err
	}
	if len(matches) == 0 {
		return domain.CartView{}, nil, store.ErrNotFound
	}
	if len(matches) > 1 {
		return domain.CartView{}, matches, nil
	}
	return s.addProduct(ctx, terminalID, matches[0])
}

func (s *Service) AddProductToCart(ctx context.Context, terminalID string, id domain.ProductID) (domain.CartView, error) {
	if strings.TrimSpace(terminalID) == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}
	view, _, err := s.addProduct(ctx, terminalID, *product)
	return view, err
}

func (s *Service) addProduct(ctx context.Context, terminalID string, product domain.Product) (domain.CartView, []domain.Product, error) {
	if !product.Active {
		return domain.CartView{}, nil, store.ErrNotFound
	}
	sess := s.session(terminalID)
	if err := sess.cart.Add(product); err != nil {
		return domain.CartView{}, nil, err
	}
	view, err := s.ViewCart(ctx, terminalID)
	return view, nil, err
}

func (s *Service) ChangeCartQuantity(ctx context.Context, terminalID string, id domain.ProductID, delta int) (domain.CartView, error) {
	sess := s.session(terminalID)
	if err := sess.cart.ChangeQuantity(ctx, id, delta, s.repo); err != nil {
		return domain.CartView{}, err
	}
	return s.ViewCart(ctx, terminalID)
}

func (s *Service) RemoveFromCart(ctx context.Context, terminalID string, id domain.ProductID) (domain.CartView, error) {
	sess := s.session(terminalID)
	sess.cart.Remove(id)
	return s.ViewCart(ctx, terminalID)
}

func (s *Service) ClearCart(ctx context.Context, terminalID string) (domain.CartView, error) {
	sess := s.session(terminalID)
	sess.cart.Clear()
	return s.ViewCart(ctx, terminalID)
}

// --- checkout ---

// Checkout commits the terminal's cart. While one commit is in flight further
// attempts from the same terminal are rejected rather than queued; on success
// the cart is cleared and a receipt can be rendered from the returned sale.
func (s *Service) Checkout(ctx context.Context, terminalID string, plan domain.PaymentPlan) (*domain.Sale, error) {
	if strings.TrimSpace(terminalID) == "" {
		return nil, store.ErrInvalidInput
	}
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated cashier required")
	}

	sess := s.session(terminalID)
	sess.mu.Lock()
	if sess.committing {
		sess.mu.Unlock()
		return nil, ErrCommitInFlight
	}
	sess.committing = true
	sess.mu.Unlock()
	defer func() {
		sess.mu.Lock()
		sess.committing = false
		sess.mu.Unlock()
	}()

	lines := sess.cart.Lines()
	committed, err := s.engine.Commit(ctx, lines, plan, actor.Username)
	if err != nil {
		return nil, err
	}

	sess.cart.Clear()
	s.logAudit(ctx, "sale_commit", "sale", committed.ID,
		fmt.Sprintf("number=%s,method=%s,total=%s", committed.SaleNumber, committed.PaymentMethod, committed.Total.StringFixed(2)))
	return committed, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if strings.TrimSpace(id) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetSaleByID(ctx, id)
}

func (s *Service) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to, limit)
}

func (s *Service) BuildReceipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	committed, err := s.GetSale(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	return s.renderer.Render(committed), nil
}

// --- customers and credit ---

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, false)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.Customer{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CreditLimit.IsNegative() {
		return domain.Customer{}, store.ErrInvalidInput
	}
	created, err := s.repo.CreateCustomer(ctx, req)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", created.ID.String(),
		fmt.Sprintf("name=%s,limit=%s", created.Name, created.CreditLimit.StringFixed(2)))
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id domain.CustomerID, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.Customer{}, err
	}
	updated, err := s.repo.UpdateCustomer(ctx, id, req)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_update", "customer", updated.ID.String(), "")
	return *updated, nil
}

func (s *Service) CreditStanding(ctx context.Context, id domain.CustomerID) (*ledger.CreditStanding, error) {
	return s.ledger.StandingFor(ctx, id)
}

func (s *Service) OpenCreditSales(ctx context.Context, id domain.CustomerID) ([]domain.OpenCreditSale, error) {
	return s.ledger.OpenCreditSalesFor(ctx, id)
}

func (s *Service) RecordCustomerPayment(ctx context.Context, customerID domain.CustomerID, req domain.CustomerPaymentRequest) (domain.CustomerPayment, error) {
	if !customerID.Valid() {
		return domain.CustomerPayment{}, domain.ErrInvalidIdentity
	}
	if !req.Amount.IsPositive() {
		return domain.CustomerPayment{}, store.ErrInvalidInput
	}
	method := strings.TrimSpace(req.Method)
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentMobileMoney:
	default:
		return domain.CustomerPayment{}, fmt.Errorf("payment method %q: %w", method, store.ErrInvalidInput)
	}

	recorded, err := s.repo.RecordCustomerPayment(ctx, domain.CustomerPayment{
		CustomerID: customerID,
		SaleID:     strings.TrimSpace(req.SaleID),
		Amount:     domain.RoundGHS(req.Amount),
		Method:     method,
		Reference:  strings.TrimSpace(req.Reference),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.CustomerPayment{}, err
	}
	s.logAudit(ctx, "customer_payment", "customer", customerID.String(),
		fmt.Sprintf("amount=%s,method=%s,sale=%s", recorded.Amount.StringFixed(2), recorded.Method, recorded.SaleID))
	return *recorded, nil
}

// --- suppliers, reports, audit ---

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.Supplier{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, store.ErrInvalidInput
	}
	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{Name: req.Name, Phone: strings.TrimSpace(req.Phone)})
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, "supplier_create", "supplier", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.DailyReport{}, fmt.Errorf("date %q: %w", date, store.ErrInvalidInput)
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)
	return s.repo.GetDailyReport(ctx, from, to)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required: %w", role, ErrForbidden)
	}
	return nil
}

// logAudit records the trail entry and only warns on failure; an audit write
// must never block or roll back the primary operation.
func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s: %v", action, entityID, err)
	}
}

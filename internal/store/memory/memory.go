package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"accrapos/internal/domain"
	"accrapos/internal/store"
	"accrapos/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[domain.ProductID]domain.Product
	productByCode   map[string]domain.ProductID
	customers       map[domain.CustomerID]domain.Customer
	salesByID       map[string]*domain.Sale
	paymentsByID    map[string]domain.CustomerPayment
	suppliersByID   map[string]domain.Supplier
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
	nextProductID   int64
	nextCustomerID  int64
	saleSeq         int64
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, dev defaults are used with a warning. These accounts never reach
// production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	seed := []domain.Product{
		{ID: 1, Barcode: "6181001000114", Name: "Ideal Milk 2L", Category: "dairy", RetailPrice: price("18.50"), CostPrice: price("14.20"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 2, Barcode: "6181001000215", Name: "Gino Tomato Paste 210g", Category: "grocery", RetailPrice: price("7.00"), CostPrice: price("5.10"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 3, Barcode: "7891234567", Name: "Voltic Water 1.5L", Category: "beverage", RetailPrice: price("5.50"), CostPrice: price("3.80"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 4, Barcode: "6181001000419", Name: "Royal Aroma Rice 5kg", Category: "grocery", RetailPrice: price("145.00"), CostPrice: price("121.00"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 5, Barcode: "6181001000521", Name: "Frytol Cooking Oil 1L", Category: "grocery", RetailPrice: price("42.00"), CostPrice: price("34.50"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 6, Barcode: "6181001000622", Name: "Milo Sachet 20g", Category: "beverage", RetailPrice: price("3.00"), CostPrice: price("2.20"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 7, Barcode: "6181001000723", Name: "Key Soap Bar", Category: "household", RetailPrice: price("9.50"), CostPrice: price("7.00"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
		{ID: 8, Barcode: "6181001000824", Name: "Titus Sardine 125g", Category: "grocery", RetailPrice: price("16.00"), CostPrice: price("12.40"), StockQuantity: 120, MinStockLevel: 10, Active: true, CreatedAt: now},
	}

	customers := []domain.Customer{
		{ID: 1, Name: "Ama Mensah", Phone: "0244000001", CreditLimit: price("100.00"), OutstandingBalance: decimal.Zero, Active: true, CreatedAt: now},
		{ID: 2, Name: "Kofi Boateng", Phone: "0244000002", CreditLimit: decimal.Zero, OutstandingBalance: decimal.Zero, Active: true, CreatedAt: now},
	}

	productMap := make(map[domain.ProductID]domain.Product, len(seed))
	codeIndex := make(map[string]domain.ProductID, len(seed))
	for _, p := range seed {
		productMap[p.ID] = p
		codeIndex[p.Barcode] = p.ID
	}
	customerMap := make(map[domain.CustomerID]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		products:        productMap,
		productByCode:   codeIndex,
		customers:       customerMap,
		salesByID:       make(map[string]*domain.Sale),
		paymentsByID:    make(map[string]domain.CustomerPayment),
		suppliersByID:   make(map[string]domain.Supplier),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
		nextProductID:   int64(len(seed)),
		nextCustomerID:  int64(len(customers)),
	}
}

func New() *Store {
	return &Store{
		products:        make(map[domain.ProductID]domain.Product),
		productByCode:   make(map[string]domain.ProductID),
		customers:       make(map[domain.CustomerID]domain.Customer),
		salesByID:       make(map[string]*domain.Sale),
		paymentsByID:    make(map[string]domain.CustomerPayment),
		suppliersByID:   make(map[string]domain.Supplier),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Barcode) == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.productByCode[req.Barcode]; exists {
		return nil, store.ErrConflict
	}
	minLevel := req.MinStockLevel
	if minLevel <= 0 {
		minLevel = 10
	}
	s.nextProductID++
	product := domain.Product{
		ID:            domain.ProductID(s.nextProductID),
		Barcode:       req.Barcode,
		Name:          req.Name,
		Category:      req.Category,
		SupplierID:    req.SupplierID,
		RetailPrice:   domain.RoundGHS(req.RetailPrice),
		CostPrice:     domain.RoundGHS(req.CostPrice),
		StockQuantity: req.InitialStock,
		MinStockLevel: minLevel,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	s.products[product.ID] = product
	s.productByCode[product.Barcode] = product.ID

	copied := product
	return &copied, nil
}

func (s *Store) UpdateProduct(_ context.Context, id domain.ProductID, req domain.ProductUpdateRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Barcode != nil && *req.Barcode != product.Barcode {
		if _, exists := s.productByCode[*req.Barcode]; exists {
			return nil, store.ErrConflict
		}
		delete(s.productByCode, product.Barcode)
		product.Barcode = *req.Barcode
		s.productByCode[product.Barcode] = id
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.SupplierID != nil {
		product.SupplierID = *req.SupplierID
	}
	if req.RetailPrice != nil {
		product.RetailPrice = domain.RoundGHS(*req.RetailPrice)
	}
	if req.CostPrice != nil {
		product.CostPrice = domain.RoundGHS(*req.CostPrice)
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, store.ErrInvalidInput
		}
		product.StockQuantity = *req.StockQuantity
	}
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	s.products[id] = product

	copied := product
	return &copied, nil
}

func (s *Store) GetProductByID(_ context.Context, id domain.ProductID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) GetProductByCode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productByCode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	if !product.Active {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) SearchProductsByName(_ context.Context, fragment string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	matched := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) GetProductStock(_ context.Context, id domain.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	return product.StockQuantity, nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if p.StockQuantity <= p.MinStockLevel {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return a.StockQuantity - b.StockQuantity
	})
	return out, nil
}

func (s *Store) ListCustomers(_ context.Context, includeInactive bool) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if !includeInactive && !c.Active {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *Store) CreateCustomer(_ context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(req.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if req.CreditLimit.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	s.nextCustomerID++
	customer := domain.Customer{
		ID:                 domain.CustomerID(s.nextCustomerID),
		Name:               req.Name,
		Phone:              req.Phone,
		Email:              req.Email,
		CreditLimit:        domain.RoundGHS(req.CreditLimit),
		OutstandingBalance: decimal.Zero,
		Active:             true,
		CreatedAt:          time.Now().UTC(),
	}
	s.customers[customer.ID] = customer

	copied := customer
	return &copied, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id domain.CustomerID, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		customer.CreditLimit = domain.RoundGHS(*req.CreditLimit)
	}
	if req.Active != nil {
		customer.Active = *req.Active
	}
	s.customers[id] = customer

	copied := customer
	return &copied, nil
}

func (s *Store) GetCustomer(_ context.Context, id domain.CustomerID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := customer
	return &copied, nil
}

// CreateSale is the atomic write: stock re-checks, decrements, the sale
// record and any customer balance increase all happen under one lock, so two
// terminals racing for the last unit cannot both succeed.
func (s *Store) CreateSale(_ context.Context, input domain.SaleInput) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(input.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	lines := make([]domain.SaleLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity < 1 || !line.ProductID.Valid() {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[line.ProductID]
		if !exists || !product.Active {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
		}
		if product.StockQuantity < line.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      product.Name,
				Available: product.StockQuantity,
				Requested: line.Quantity,
			}
		}
		lines = append(lines, domain.SaleLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: domain.RoundGHS(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}

	var customer domain.Customer
	if input.IsCredit {
		if input.CustomerID == nil {
			return nil, store.ErrInvalidInput
		}
		var ok bool
		customer, ok = s.customers[*input.CustomerID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if customer.CreditLimit.IsZero() || customer.OutstandingBalance.Add(input.BalanceDue).GreaterThan(customer.CreditLimit) {
			available := customer.CreditLimit.Sub(customer.OutstandingBalance)
			if available.IsNegative() {
				available = decimal.Zero
			}
			return nil, &domain.CreditLimitExceededError{
				CustomerID: customer.ID,
				Limit:      customer.CreditLimit,
				Balance:    customer.OutstandingBalance,
				Available:  available,
				Requested:  input.BalanceDue,
			}
		}
	}

	// All checks passed; apply every side effect.
	for _, line := range input.Lines {
		product := s.products[line.ProductID]
		product.StockQuantity -= line.Quantity
		s.products[line.ProductID] = product
	}
	if input.IsCredit {
		customer.OutstandingBalance = customer.OutstandingBalance.Add(input.BalanceDue)
		s.customers[customer.ID] = customer
	}

	s.saleSeq++
	sale := &domain.Sale{
		ID:             xid.NewSale(),
		SaleNumber:     fmt.Sprintf("SALE-%06d", s.saleSeq),
		CashierID:      input.CashierID,
		CustomerID:     input.CustomerID,
		PaymentMethod:  input.PaymentMethod,
		Splits:         append([]domain.SplitPart(nil), input.Splits...),
		Subtotal:       input.Subtotal,
		Discount:       input.Discount,
		Tax:            input.Tax,
		Total:          input.Total,
		AmountPaid:     input.AmountPaid,
		AmountTendered: input.AmountTendered,
		ChangeAmount:   input.ChangeAmount,
		BalanceDue:     input.BalanceDue,
		IsCredit:       input.IsCredit,
		CreatedAt:      time.Now().UTC(),
		Lines:          lines,
	}
	s.salesByID[sale.ID] = sale

	return cloneSale(sale), nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]domain.Sale, 0, limit)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		out = append(out, *cloneSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListOpenCreditSales(_ context.Context, customerID domain.CustomerID) ([]domain.OpenCreditSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.OpenCreditSale, 0, 8)
	for _, sale := range s.salesByID {
		if !sale.IsCredit || sale.CustomerID == nil || *sale.CustomerID != customerID {
			continue
		}
		if !sale.BalanceDue.IsPositive() {
			continue
		}
		out = append(out, domain.OpenCreditSale{
			SaleID:      sale.ID,
			SaleNumber:  sale.SaleNumber,
			FinalAmount: sale.Total,
			BalanceDue:  sale.BalanceDue,
			CreatedAt:   sale.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b domain.OpenCreditSale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// RecordCustomerPayment reduces the customer's outstanding balance and, when
// earmarked, the target sale's balance due, in one locked step.
func (s *Store) RecordCustomerPayment(_ context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !payment.Amount.IsPositive() {
		return nil, store.ErrInvalidInput
	}
	customer, ok := s.customers[payment.CustomerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if payment.Amount.GreaterThan(customer.OutstandingBalance) {
		return nil, fmt.Errorf("payment exceeds outstanding balance: %w", store.ErrInvalidInput)
	}

	if payment.SaleID != "" {
		sale, ok := s.salesByID[payment.SaleID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if sale.CustomerID == nil || *sale.CustomerID != payment.CustomerID {
			return nil, fmt.Errorf("sale %s does not belong to customer %s: %w", payment.SaleID, payment.CustomerID, store.ErrInvalidInput)
		}
		if payment.Amount.GreaterThan(sale.BalanceDue) {
			return nil, fmt.Errorf("payment exceeds sale balance due: %w", store.ErrInvalidInput)
		}
		sale.BalanceDue = sale.BalanceDue.Sub(payment.Amount)
		sale.AmountPaid = sale.AmountPaid.Add(payment.Amount)
	}

	customer.OutstandingBalance = customer.OutstandingBalance.Sub(payment.Amount)
	s.customers[customer.ID] = customer

	payment.ID = xid.NewPayment()
	payment.CreatedAt = time.Now().UTC()
	s.paymentsByID[payment.ID] = payment

	copied := payment
	return &copied, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliersByID[supplier.ID] = supplier

	copied := supplier
	return &copied, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		out = append(out, sup)
	}
	slices.SortFunc(out, func(a, b domain.Supplier) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{
		Date:       from.Format("2006-01-02"),
		GrossSales: decimal.Zero,
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
		NetSales:   decimal.Zero,
		CreditDue:  decimal.Zero,
	}
	byPayment := map[string]*domain.DailyReportPayment{}
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		report.Sales++
		report.GrossSales = report.GrossSales.Add(sale.Total)
		report.Discount = report.Discount.Add(sale.Discount)
		report.Tax = report.Tax.Add(sale.Tax)
		report.CreditDue = report.CreditDue.Add(sale.BalanceDue)

		entry, ok := byPayment[sale.PaymentMethod]
		if !ok {
			entry = &domain.DailyReportPayment{PaymentMethod: sale.PaymentMethod, Total: decimal.Zero}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Sales++
		entry.Total = entry.Total.Add(sale.Total)
	}
	report.NetSales = report.GrossSales.Sub(report.Discount)
	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.DailyReportPayment) int {
		return strings.Compare(a.PaymentMethod, b.PaymentMethod)
	})
	return report, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneSale(sale *domain.Sale) *domain.Sale {
	copied := *sale
	copied.Lines = append([]domain.SaleLine(nil), sale.Lines...)
	copied.Splits = append([]domain.SplitPart(nil), sale.Splits...)
	if sale.CustomerID != nil {
		id := *sale.CustomerID
		copied.CustomerID = &id
	}
	return &copied
}

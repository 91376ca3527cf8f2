package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"accrapos/internal/domain"
	"accrapos/internal/store"
	"accrapos/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, barcode, name, category, COALESCE(supplier_id, ''), retail_price, cost_price, stock_quantity, min_stock_level, active, created_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.Category, &p.SupplierID,
		&p.RetailPrice, &p.CostPrice, &p.StockQuantity, &p.MinStockLevel, &p.Active, &p.CreatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY lower(name)`
	if !includeInactive {
		query = `SELECT ` + productColumns + ` FROM products WHERE active = true ORDER BY lower(name)`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Barcode) == "" {
		return nil, store.ErrInvalidInput
	}
	if req.RetailPrice.IsNegative() || req.CostPrice.IsNegative() || req.InitialStock < 0 {
		return nil, store.ErrInvalidInput
	}
	minLevel := req.MinStockLevel
	if minLevel <= 0 {
		minLevel = 10
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (barcode, name, category, supplier_id, retail_price, cost_price, stock_quantity, min_stock_level, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true,now(),now())
		RETURNING `+productColumns+`
	`, req.Barcode, req.Name, req.Category, nullIfEmpty(req.SupplierID),
		domain.RoundGHS(req.RetailPrice), domain.RoundGHS(req.CostPrice), req.InitialStock, minLevel)

	p, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id domain.ProductID, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if !id.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET
			barcode = COALESCE($2, barcode),
			name = COALESCE($3, name),
			category = COALESCE($4, category),
			supplier_id = COALESCE($5, supplier_id),
			retail_price = COALESCE($6, retail_price),
			cost_price = COALESCE($7, cost_price),
			stock_quantity = COALESCE($8, stock_quantity),
			min_stock_level = COALESCE($9, min_stock_level),
			active = COALESCE($10, active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, req.Barcode, req.Name, req.Category, req.SupplierID,
		req.RetailPrice, req.CostPrice, req.StockQuantity, req.MinStockLevel, req.Active)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByID(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByCode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE barcode = $1 AND active = true
	`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SearchProductsByName(ctx context.Context, fragment string, limit int) ([]domain.Product, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND name ILIKE '%' || $1 || '%'
		ORDER BY lower(name)
		LIMIT $2
	`, fragment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProductStock(ctx context.Context, id domain.ProductID) (int, error) {
	var qty int
	err := s.db.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, id).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity ASC, lower(name)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const customerColumns = `id, name, COALESCE(phone, ''), COALESCE(email, ''), credit_limit, outstanding_balance, active, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreditLimit, &c.OutstandingBalance, &c.Active, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, includeInactive bool) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY lower(name)`
	if !includeInactive {
		query = `SELECT ` + customerColumns + ` FROM customers WHERE active = true ORDER BY lower(name)`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	if strings.TrimSpace(req.Name) == "" || req.CreditLimit.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email, credit_limit, outstanding_balance, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,0,true,now(),now())
		RETURNING `+customerColumns+`
	`, req.Name, nullIfEmpty(req.Phone), nullIfEmpty(req.Email), domain.RoundGHS(req.CreditLimit))

	c, err := scanCustomer(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id domain.CustomerID, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	if !id.Valid() {
		return nil, domain.ErrInvalidIdentity
	}
	if req.CreditLimit != nil && req.CreditLimit.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE customers SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email),
			credit_limit = COALESCE($5, credit_limit),
			active = COALESCE($6, active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns+`
	`, id, req.Name, req.Phone, req.Email, req.CreditLimit, req.Active)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateSale writes the sale header, its lines, the conditional stock
// decrements and the optional customer balance increase in one serializable
// transaction. The decrement guard (stock_quantity >= qty) is the authority
// on oversell; a failed guard surfaces as a typed insufficient-stock error,
// never a partial write.
func (s *Store) CreateSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error) {
	if len(input.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, line := range input.Lines {
		if line.Quantity < 1 || !line.ProductID.Valid() {
			return nil, store.ErrInvalidInput
		}
	}

	sale, err := s.createSaleTx(ctx, input)
	if isSerializationFailure(err) {
		// When two commits race for the same stock row, the loser aborts with
		// SQLSTATE 40001 before its decrement guard is re-evaluated. Rerunning
		// the transaction against the committed state lets the guard answer:
		// either the retry succeeds or it reports insufficient stock.
		sale, err = s.createSaleTx(ctx, input)
	}
	return sale, err
}

// 40001 = serialization_failure, 40P01 = deadlock_detected. Both mean the
// transaction lost a concurrency race and is safe to rerun.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

func (s *Store) createSaleTx(ctx context.Context, input domain.SaleInput) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	saleLines := make([]domain.SaleLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = now()
			WHERE id = $2 AND active = true AND stock_quantity >= $1
		`, line.Quantity, line.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var name string
			var available int
			err := pgTx.QueryRowContext(ctx, `
				SELECT name, stock_quantity FROM products WHERE id = $1 AND active = true
			`, line.ProductID).Scan(&name, &available)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
			}
			if err != nil {
				return nil, err
			}
			return nil, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      name,
				Available: available,
				Requested: line.Quantity,
			}
		}
		saleLines = append(saleLines, domain.SaleLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: domain.RoundGHS(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}

	if input.IsCredit {
		if input.CustomerID == nil {
			return nil, store.ErrInvalidInput
		}
		var limit, balance decimal.Decimal
		err := pgTx.QueryRowContext(ctx, `
			SELECT credit_limit, outstanding_balance FROM customers WHERE id = $1 AND active = true FOR UPDATE
		`, *input.CustomerID).Scan(&limit, &balance)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if limit.IsZero() || balance.Add(input.BalanceDue).GreaterThan(limit) {
			available := limit.Sub(balance)
			if available.IsNegative() {
				available = decimal.Zero
			}
			return nil, &domain.CreditLimitExceededError{
				CustomerID: *input.CustomerID,
				Limit:      limit,
				Balance:    balance,
				Available:  available,
				Requested:  input.BalanceDue,
			}
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE customers SET outstanding_balance = outstanding_balance + $1, updated_at = now() WHERE id = $2
		`, input.BalanceDue, *input.CustomerID); err != nil {
			return nil, err
		}
	}

	var seq int64
	if err := pgTx.QueryRowContext(ctx, `SELECT nextval('sale_number_seq')`).Scan(&seq); err != nil {
		return nil, err
	}

	sale := &domain.Sale{
		ID:             xid.NewSale(),
		SaleNumber:     fmt.Sprintf("SALE-%06d", seq),
		CashierID:      input.CashierID,
		CustomerID:     input.CustomerID,
		PaymentMethod:  input.PaymentMethod,
		Splits:         input.Splits,
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
		Lines:          saleLines,
	}

	splitsJSON, err := encodeSplits(sale.Splits)
	if err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, sale_number, cashier_id, customer_id, payment_method, splits,
			subtotal, discount, tax, total, amount_paid, amount_tendered,
			change_amount, balance_due, is_credit, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, sale.ID, sale.SaleNumber, sale.CashierID, nullCustomerID(sale.CustomerID), sale.PaymentMethod, splitsJSON,
		sale.Subtotal, sale.Discount, sale.Tax, sale.Total, sale.AmountPaid, sale.AmountTendered,
		sale.ChangeAmount, sale.BalanceDue, sale.IsCredit, sale.CreatedAt); err != nil {
		return nil, err
	}

	for _, line := range sale.Lines {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, line.ProductID, line.Name, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

const saleColumns = `id, sale_number, cashier_id, customer_id, payment_method, COALESCE(splits, 'null'),
	subtotal, discount, tax, total, amount_paid, amount_tendered, change_amount, balance_due, is_credit, created_at`

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullInt64
	var splitsJSON []byte
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.CashierID, &customerID, &sale.PaymentMethod, &splitsJSON,
		&sale.Subtotal, &sale.Discount, &sale.Tax, &sale.Total, &sale.AmountPaid, &sale.AmountTendered,
		&sale.ChangeAmount, &sale.BalanceDue, &sale.IsCredit, &sale.CreatedAt)
	if err != nil {
		return sale, err
	}
	if customerID.Valid {
		id := domain.CustomerID(customerID.Int64)
		sale.CustomerID = &id
	}
	if len(splitsJSON) > 0 {
		if err := json.Unmarshal(splitsJSON, &sale.Splits); err != nil {
			return sale, err
		}
	}
	return sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price, line_total
		FROM sale_items WHERE sale_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return nil, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) ListOpenCreditSales(ctx context.Context, customerID domain.CustomerID) ([]domain.OpenCreditSale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, total, balance_due, created_at
		FROM sales
		WHERE customer_id = $1 AND is_credit = true AND balance_due > 0
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.OpenCreditSale, 0, 16)
	for rows.Next() {
		var entry domain.OpenCreditSale
		if err := rows.Scan(&entry.SaleID, &entry.SaleNumber, &entry.FinalAmount, &entry.BalanceDue, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// RecordCustomerPayment locks the customer row (and the earmarked sale, if
// any) so the balance decrement and the payment record land together.
func (s *Store) RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error) {
	if !payment.Amount.IsPositive() || !payment.CustomerID.Valid() {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var balance decimal.Decimal
	err = pgTx.QueryRowContext(ctx, `
		SELECT outstanding_balance FROM customers WHERE id = $1 FOR UPDATE
	`, payment.CustomerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if payment.Amount.GreaterThan(balance) {
		return nil, fmt.Errorf("payment exceeds outstanding balance: %w", store.ErrInvalidInput)
	}

	if payment.SaleID != "" {
		var saleCustomer sql.NullInt64
		var balanceDue decimal.Decimal
		err := pgTx.QueryRowContext(ctx, `
			SELECT customer_id, balance_due FROM sales WHERE id = $1 FOR UPDATE
		`, payment.SaleID).Scan(&saleCustomer, &balanceDue)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if !saleCustomer.Valid || domain.CustomerID(saleCustomer.Int64) != payment.CustomerID {
			return nil, fmt.Errorf("sale does not belong to customer: %w", store.ErrInvalidInput)
		}
		if payment.Amount.GreaterThan(balanceDue) {
			return nil, fmt.Errorf("payment exceeds sale balance due: %w", store.ErrInvalidInput)
		}
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE sales SET balance_due = balance_due - $1, amount_paid = amount_paid + $1 WHERE id = $2
		`, payment.Amount, payment.SaleID); err != nil {
			return nil, err
		}
	}

	if _, err := pgTx.ExecContext(ctx, `
		UPDATE customers SET outstanding_balance = outstanding_balance - $1, updated_at = now() WHERE id = $2
	`, payment.Amount, payment.CustomerID); err != nil {
		return nil, err
	}

	payment.ID = xid.NewPayment()
	payment.CreatedAt = time.Now().UTC()
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO customer_payments (id, customer_id, sale_id, amount, method, reference, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, payment.ID, payment.CustomerID, nullIfEmpty(payment.SaleID), payment.Amount,
		payment.Method, nullIfEmpty(payment.Reference), strings.TrimSpace(payment.Notes), payment.CreatedAt); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, supplier.Name, nullIfEmpty(supplier.Phone), supplier.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), created_at FROM suppliers ORDER BY lower(name)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{
		Date:       from.Format("2006-01-02"),
		GrossSales: decimal.Zero,
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
		NetSales:   decimal.Zero,
		CreditDue:  decimal.Zero,
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(discount), 0), COALESCE(SUM(tax), 0), COALESCE(SUM(balance_due), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at <= $2
	`, from, to).Scan(&report.Sales, &report.GrossSales, &report.Discount, &report.Tax, &report.CreditDue)
	if err != nil {
		return report, err
	}
	report.NetSales = report.GrossSales.Sub(report.Discount)

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return report, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry domain.DailyReportPayment
		if err := rows.Scan(&entry.PaymentMethod, &entry.Sales, &entry.Total); err != nil {
			return report, err
		}
		report.ByPayment = append(report.ByPayment, entry)
	}
	return report, rows.Err()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), strings.TrimSpace(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, COALESCE(entity_id, ''), detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func encodeSplits(splits []domain.SplitPart) (any, error) {
	if len(splits) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(splits)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullCustomerID(id *domain.CustomerID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

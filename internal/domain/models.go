package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            ProductID       `json:"id"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	InitialStock  int             `json:"initial_stock"`
	MinStockLevel int             `json:"min_stock_level"`
}

type ProductUpdateRequest struct {
	Barcode       *string          `json:"barcode,omitempty"`
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	SupplierID    *string          `json:"supplier_id,omitempty"`
	RetailPrice   *decimal.Decimal `json:"retail_price,omitempty"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
	MinStockLevel *int             `json:"min_stock_level,omitempty"`
	Active        *bool            `json:"active,omitempty"`
}

type Customer struct {
	ID                 CustomerID      `json:"id"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone"`
	Email              string          `json:"email,omitempty"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Active             bool            `json:"active"`
	CreatedAt          time.Time       `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type CustomerUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Email       *string          `json:"email,omitempty"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

// CartLine is a single product entry in a terminal cart. UnitPrice is copied
// at add time; LastKnownStock is an advisory snapshot that is never trusted at
// commit time.
type CartLine struct {
	ProductID      ProductID       `json:"product_id"`
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	LastKnownStock int             `json:"last_known_stock"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartView struct {
	TerminalID string          `json:"terminal_id"`
	Lines      []CartLine      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

const (
	PaymentCash        = "cash"
	PaymentCard        = "card"
	PaymentMobileMoney = "momo"
	PaymentCredit      = "credit"
	PaymentSplit       = "split"
)

type SplitPart struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// PaymentPlan describes how a sale is settled. CustomerID is required for
// credit plans; AmountTendered only applies to cash; Splits only to split.
type PaymentPlan struct {
	Method         string          `json:"method"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	CustomerID     *CustomerID     `json:"customer_id,omitempty"`
	Splits         []SplitPart     `json:"splits,omitempty"`
	Reference      string          `json:"reference,omitempty"`
}

type SaleLine struct {
	ProductID ProductID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Sale struct {
	ID             string          `json:"id"`
	SaleNumber     string          `json:"sale_number"`
	CashierID      string          `json:"cashier_id"`
	CustomerID     *CustomerID     `json:"customer_id,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	Splits         []SplitPart     `json:"splits,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	IsCredit       bool            `json:"is_credit"`
	CreatedAt      time.Time       `json:"created_at"`
	Lines          []SaleLine      `json:"lines"`
}

type SaleLineInput struct {
	ProductID ProductID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// SaleInput is the unit of work handed to the store's atomic CreateSale:
// header, lines, stock decrements and the optional customer balance increase
// all land or none do.
type SaleInput struct {
	CashierID      string
	CustomerID     *CustomerID
	PaymentMethod  string
	Splits         []SplitPart
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountTendered decimal.Decimal
	ChangeAmount   decimal.Decimal
	BalanceDue     decimal.Decimal
	IsCredit       bool
	Lines          []SaleLineInput
}

type CustomerPayment struct {
	ID         string          `json:"id"`
	CustomerID CustomerID      `json:"customer_id"`
	SaleID     string          `json:"sale_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CustomerPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	SaleID    string          `json:"sale_id,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// OpenCreditSale is the credit ledger projection of a sale that still carries
// a balance due.
type OpenCreditSale struct {
	SaleID      string          `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	BalanceDue  decimal.Decimal `json:"balance_due"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CartAddRequest struct {
	TerminalID string    `json:"terminal_id"`
	Input      string    `json:"input,omitempty"`
	ProductID  ProductID `json:"product_id,omitempty"`
}

type CartAddResponse struct {
	Cart       *CartView `json:"cart,omitempty"`
	Candidates []Product `json:"candidates,omitempty"`
}

type CartQuantityRequest struct {
	TerminalID string    `json:"terminal_id"`
	ProductID  ProductID `json:"product_id"`
	Delta      int       `json:"delta"`
}

type CartRemoveRequest struct {
	TerminalID string    `json:"terminal_id"`
	ProductID  ProductID `json:"product_id"`
}

type CartClearRequest struct {
	TerminalID string `json:"terminal_id"`
}

type CheckoutRequest struct {
	TerminalID string      `json:"terminal_id"`
	Payment    PaymentPlan `json:"payment"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type DailyReportPayment struct {
	PaymentMethod string          `json:"payment_method"`
	Sales         int64           `json:"sales"`
	Total         decimal.Decimal `json:"total"`
}

type DailyReport struct {
	Date       string               `json:"date"`
	Sales      int64                `json:"sales"`
	GrossSales decimal.Decimal      `json:"gross_sales"`
	Discount   decimal.Decimal      `json:"discount"`
	Tax        decimal.Decimal      `json:"tax"`
	NetSales   decimal.Decimal      `json:"net_sales"`
	CreditDue  decimal.Decimal      `json:"credit_due"`
	ByPayment  []DailyReportPayment `json:"by_payment"`
}

type ReceiptResponse struct {
	SaleID       string `json:"sale_id"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

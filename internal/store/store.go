package store

import (
	"context"
	"errors"
	"time"

	"accrapos/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the data-access collaborator. CreateSale must be a single
// atomic write: sale header, sale lines, conditional stock decrements and the
// optional customer balance increase all land or none do. Typed conflicts
// (domain.InsufficientStockError, domain.CreditLimitExceededError) are
// returned from inside that write rather than trusting any earlier read.
type Repository interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id domain.ProductID, req domain.ProductUpdateRequest) (*domain.Product, error)
	GetProductByID(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	GetProductByCode(ctx context.Context, barcode string) (*domain.Product, error)
	SearchProductsByName(ctx context.Context, fragment string, limit int) ([]domain.Product, error)
	GetProductStock(ctx context.Context, id domain.ProductID) (int, error)
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	ListCustomers(ctx context.Context, includeInactive bool) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id domain.CustomerID, req domain.CustomerUpdateRequest) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.Customer, error)

	CreateSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)
	ListOpenCreditSales(ctx context.Context, customerID domain.CustomerID) ([]domain.OpenCreditSale, error)

	RecordCustomerPayment(ctx context.Context, payment domain.CustomerPayment) (*domain.CustomerPayment, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleGuest   = "guest"
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

const (
	DefaultLowStockThreshold = 5
	DefaultCurrency          = "USD"
	DefaultBusinessName      = "My Store"
	DefaultPaymentMethod     = "Cash"
)

type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Barcode        string          `json:"barcode,omitempty"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	Quantity       int             `json:"quantity"`
	ExpirationDate *Date           `json:"expirationDate,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (p Product) Clone() Product {
	if p.ExpirationDate != nil {
		exp := *p.ExpirationDate
		p.ExpirationDate = &exp
	}
	return p
}

// ProductInput is the raw product form as typed by a user. Numeric fields
// are kept as text until ParseProductInput converts them.
type ProductInput struct {
	Name           string       `json:"name"`
	Category       string       `json:"category"`
	Barcode        string       `json:"barcode"`
	CostPrice      NumericInput `json:"cost_price"`
	SellingPrice   NumericInput `json:"selling_price"`
	Quantity       NumericInput `json:"quantity"`
	ExpirationDate string       `json:"expirationDate"`
}

type ProductDraft struct {
	Name           string
	Category       string
	Barcode        string
	CostPrice      decimal.Decimal
	SellingPrice   decimal.Decimal
	Quantity       int
	ExpirationDate *Date
}

type ProductPatch struct {
	Name           *string          `json:"name,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Barcode        *string          `json:"barcode,omitempty"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice   *decimal.Decimal `json:"selling_price,omitempty"`
	Quantity       *int             `json:"quantity,omitempty"`
	ExpirationDate *Date            `json:"expirationDate,omitempty"`
}

type SaleItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Total     decimal.Decimal `json:"total"`
	Profit    decimal.Decimal `json:"profit"`
}

// Sale is the single record of a completed transaction. The ledger entry and
// the receipt are both projections of it, so their void state cannot drift.
type Sale struct {
	ID            string
	Date          time.Time
	Items         []SaleItem
	TotalPrice    decimal.Decimal
	Profit        decimal.Decimal
	Quantity      int
	PaymentMethod string
	Voided        bool
	VoidReason    string
	VoidedAt      *time.Time
	Receipt       *ReceiptDetail
}

type ReceiptDetail struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	StoreName    string
	CashierName  string
	CustomerName string
	AmountPaid   *decimal.Decimal
	Change       *decimal.Decimal
}

// LedgerRecord is the persisted "sales" entry.
type LedgerRecord struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Items         []SaleItem      `json:"items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Profit        decimal.Decimal `json:"profit"`
	Quantity      int             `json:"quantity"`
	PaymentMethod string          `json:"payment_method"`
	Voided        bool            `json:"voided"`
	IsVoided      bool            `json:"isVoided"`
	VoidReason    string          `json:"voidReason,omitempty"`
	VoidedAt      *time.Time      `json:"voidedAt,omitempty"`
}

// Receipt is the persisted "transactions" entry.
type Receipt struct {
	ID            string           `json:"id"`
	ReceiptID     string           `json:"receiptId"`
	Date          time.Time        `json:"date"`
	Items         []SaleItem       `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Tax           decimal.Decimal  `json:"tax"`
	Discount      decimal.Decimal  `json:"discount"`
	Total         decimal.Decimal  `json:"total"`
	Profit        decimal.Decimal  `json:"profit"`
	Quantity      int              `json:"quantity"`
	PaymentMethod string           `json:"payment_method"`
	StoreName     string           `json:"storeName"`
	CashierName   string           `json:"cashierName,omitempty"`
	CustomerName  string           `json:"customerName,omitempty"`
	AmountPaid    *decimal.Decimal `json:"amountPaid,omitempty"`
	Change        *decimal.Decimal `json:"change,omitempty"`
	Voided        bool             `json:"voided"`
	IsVoided      bool             `json:"isVoided"`
	VoidReason    string           `json:"voidReason,omitempty"`
	VoidedAt      *time.Time       `json:"voidedAt,omitempty"`
}

func (s Sale) LedgerRecord() LedgerRecord {
	return LedgerRecord{
		ID:            s.ID,
		Date:          s.Date,
		Items:         s.Items,
		TotalPrice:    s.TotalPrice,
		Profit:        s.Profit,
		Quantity:      s.Quantity,
		PaymentMethod: s.PaymentMethod,
		Voided:        s.Voided,
		IsVoided:      s.Voided,
		VoidReason:    s.VoidReason,
		VoidedAt:      s.VoidedAt,
	}
}

// ReceiptView returns the receipt projection. The second value is false for
// sales recorded without receipt detail.
func (s Sale) ReceiptView() (Receipt, bool) {
	if s.Receipt == nil {
		return Receipt{}, false
	}
	r := s.Receipt
	return Receipt{
		ID:            s.ID,
		ReceiptID:     s.ID,
		Date:          s.Date,
		Items:         s.Items,
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		Discount:      r.Discount,
		Total:         r.Total,
		Profit:        s.Profit,
		Quantity:      s.Quantity,
		PaymentMethod: s.PaymentMethod,
		StoreName:     r.StoreName,
		CashierName:   r.CashierName,
		CustomerName:  r.CustomerName,
		AmountPaid:    r.AmountPaid,
		Change:        r.Change,
		Voided:        s.Voided,
		IsVoided:      s.Voided,
		VoidReason:    s.VoidReason,
		VoidedAt:      s.VoidedAt,
	}, true
}

// SaleFromRecords rebuilds a sale from its persisted ledger entry and the
// optional receipt that shares its id. A void on either side wins.
func SaleFromRecords(rec LedgerRecord, receipt *Receipt) Sale {
	sale := Sale{
		ID:            rec.ID,
		Date:          rec.Date,
		Items:         rec.Items,
		TotalPrice:    rec.TotalPrice,
		Profit:        rec.Profit,
		Quantity:      rec.Quantity,
		PaymentMethod: rec.PaymentMethod,
		Voided:        rec.Voided || rec.IsVoided,
		VoidReason:    rec.VoidReason,
		VoidedAt:      rec.VoidedAt,
	}
	if receipt == nil {
		return sale
	}
	sale.Receipt = &ReceiptDetail{
		Subtotal:     receipt.Subtotal,
		Tax:          receipt.Tax,
		Discount:     receipt.Discount,
		Total:        receipt.Total,
		StoreName:    receipt.StoreName,
		CashierName:  receipt.CashierName,
		CustomerName: receipt.CustomerName,
		AmountPaid:   receipt.AmountPaid,
		Change:       receipt.Change,
	}
	if !sale.Voided && (receipt.Voided || receipt.IsVoided) {
		sale.Voided = true
		sale.VoidReason = receipt.VoidReason
		sale.VoidedAt = receipt.VoidedAt
	}
	return sale
}

// SaleFromReceipt recovers a sale for a receipt whose ledger entry is missing.
func SaleFromReceipt(r Receipt) Sale {
	rec := LedgerRecord{
		ID:            r.ID,
		Date:          r.Date,
		Items:         r.Items,
		TotalPrice:    r.Total,
		Profit:        r.Profit,
		Quantity:      r.Quantity,
		PaymentMethod: r.PaymentMethod,
	}
	if rec.ID == "" {
		rec.ID = r.ReceiptID
	}
	return SaleFromRecords(rec, &r)
}

type Settings struct {
	LowStockThreshold       int             `json:"lowStockThreshold"`
	Currency                string          `json:"currency"`
	BusinessName            string          `json:"businessName"`
	AdminSwitchPasswordHash string          `json:"adminSwitchPasswordHash,omitempty"`
	TaxRate                 decimal.Decimal `json:"taxRate"`
	ReceiptFooter           string          `json:"receiptFooter,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		LowStockThreshold: DefaultLowStockThreshold,
		Currency:          DefaultCurrency,
		BusinessName:      DefaultBusinessName,
		TaxRate:           decimal.Zero,
	}
}

type SettingsPatch struct {
	LowStockThreshold   *int             `json:"lowStockThreshold,omitempty"`
	Currency            *string          `json:"currency,omitempty"`
	BusinessName        *string          `json:"businessName,omitempty"`
	AdminSwitchPassword *string          `json:"adminSwitchPassword,omitempty"`
	TaxRate             *decimal.Decimal `json:"taxRate,omitempty"`
	ReceiptFooter       *string          `json:"receiptFooter,omitempty"`
}

// Snapshot is the full state of one store. A committed snapshot is never
// modified; every mutation produces a new one.
type Snapshot struct {
	Products []Product
	Sales    []Sale
	Settings Settings
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Products: []Product{},
		Sales:    []Sale{},
		Settings: DefaultSettings(),
	}
}

// Transactions lists the receipt projections, newest first.
func (s *Snapshot) Transactions() []Receipt {
	out := make([]Receipt, 0, len(s.Sales))
	for _, sale := range s.Sales {
		if r, ok := sale.ReceiptView(); ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Products: make([]Product, len(s.Products)),
		Sales:    make([]Sale, len(s.Sales)),
		Settings: s.Settings,
	}
	for i, p := range s.Products {
		out.Products[i] = p.Clone()
	}
	for i, sale := range s.Sales {
		sale.Items = append([]SaleItem(nil), sale.Items...)
		if sale.Receipt != nil {
			detail := *sale.Receipt
			sale.Receipt = &detail
		}
		if sale.VoidedAt != nil {
			at := *sale.VoidedAt
			sale.VoidedAt = &at
		}
		out.Sales[i] = sale
	}
	return out
}

type CartLine struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Total     *decimal.Decimal `json:"total,omitempty"`
}

// ReceiptData carries caller-supplied receipt display values. Nil amounts are
// derived from the transaction.
type ReceiptData struct {
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
	Tax          *decimal.Decimal `json:"tax,omitempty"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	StoreName    string           `json:"storeName,omitempty"`
	CashierName  string           `json:"cashierName,omitempty"`
	CustomerName string           `json:"customerName,omitempty"`
	AmountPaid   *decimal.Decimal `json:"amountPaid,omitempty"`
}

type SaleRequest struct {
	ProductID     string
	Quantity      int
	PaymentMethod string
}

type SaleCreateRequest struct {
	ProductID     string       `json:"product_id"`
	Quantity      NumericInput `json:"quantity"`
	PaymentMethod string       `json:"payment_method"`
}

type TransactionCreateRequest struct {
	Items         []CartLine   `json:"items"`
	PaymentMethod string       `json:"payment_method"`
	Receipt       *ReceiptData `json:"receipt,omitempty"`
}

type VoidRequest struct {
	Reason string `json:"reason"`
}

type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: map[string]string{}}
}

func (v *ValidationResult) Add(field string, msg string) {
	if v.Errors == nil {
		v.Errors = map[string]string{}
	}
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = msg
	}
	v.IsValid = false
}

type DailyReportPayment struct {
	PaymentMethod string          `json:"payment_method"`
	Transactions  int64           `json:"transactions"`
	Total         decimal.Decimal `json:"total"`
}

type DailyReportProduct struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Total     decimal.Decimal `json:"total"`
}

type DailyReport struct {
	StoreID      string               `json:"store_id"`
	Date         string               `json:"date"`
	Currency     string               `json:"currency"`
	Transactions int64                `json:"transactions"`
	Voided       int64                `json:"voided"`
	Units        int64                `json:"units"`
	GrossSales   decimal.Decimal      `json:"gross_sales"`
	Profit       decimal.Decimal      `json:"profit"`
	ByPayment    []DailyReportPayment `json:"by_payment"`
	TopProducts  []DailyReportProduct `json:"top_products"`
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

type AdminSwitchRequest struct {
	Password string `json:"password"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

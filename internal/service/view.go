package service

import (
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/catalog"
	"warungpos/backend/internal/domain"
)

// View is a store snapshot as a given role may see it. Cost and profit
// fields are nil unless the role is admin; stored data is never changed.
type View struct {
	Role         string        `json:"role"`
	Products     []ProductView `json:"products"`
	Sales        []SaleView    `json:"sales"`
	Transactions []ReceiptView `json:"transactions"`
	Settings     SettingsView  `json:"settings"`
	LowStock     []ProductView `json:"lowStockItems"`
}

type ProductView struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Barcode        string           `json:"barcode,omitempty"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice   decimal.Decimal  `json:"selling_price"`
	Quantity       int              `json:"quantity"`
	ExpirationDate *domain.Date     `json:"expirationDate,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type ItemView struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
	Total     decimal.Decimal  `json:"total"`
	Profit    *decimal.Decimal `json:"profit,omitempty"`
}

type SaleView struct {
	ID            string           `json:"id"`
	Date          time.Time        `json:"date"`
	Items         []ItemView       `json:"items"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	Profit        *decimal.Decimal `json:"profit,omitempty"`
	Quantity      int              `json:"quantity"`
	PaymentMethod string           `json:"payment_method"`
	Voided        bool             `json:"voided"`
	IsVoided      bool             `json:"isVoided"`
	VoidReason    string           `json:"voidReason,omitempty"`
	VoidedAt      *time.Time       `json:"voidedAt,omitempty"`
	HasReceipt    bool             `json:"hasReceipt"`
}

type ReceiptView struct {
	ID            string           `json:"id"`
	ReceiptID     string           `json:"receiptId"`
	Date          time.Time        `json:"date"`
	Items         []ItemView       `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Tax           decimal.Decimal  `json:"tax"`
	Discount      decimal.Decimal  `json:"discount"`
	Total         decimal.Decimal  `json:"total"`
	Profit        *decimal.Decimal `json:"profit,omitempty"`
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

type SettingsView struct {
	LowStockThreshold     int             `json:"lowStockThreshold"`
	Currency              string          `json:"currency"`
	BusinessName          string          `json:"businessName"`
	TaxRate               decimal.Decimal `json:"taxRate"`
	ReceiptFooter         string          `json:"receiptFooter,omitempty"`
	AdminSwitchConfigured bool            `json:"adminSwitchConfigured"`
}

// ViewFor projects snap for role. Guests get the cashier projection.
func ViewFor(role string, snap *domain.Snapshot) View {
	view := View{
		Role:         role,
		Products:     make([]ProductView, 0, len(snap.Products)),
		Sales:        make([]SaleView, 0, len(snap.Sales)),
		Transactions: []ReceiptView{},
		Settings:     SettingsViewFor(snap.Settings),
		LowStock:     []ProductView{},
	}
	for _, p := range snap.Products {
		view.Products = append(view.Products, ProductViewFor(role, p))
	}
	for _, s := range snap.Sales {
		view.Sales = append(view.Sales, SaleViewFor(role, s))
	}
	for _, r := range snap.Transactions() {
		view.Transactions = append(view.Transactions, ReceiptViewFor(role, r))
	}
	for _, p := range catalog.LowStock(snap.Products, snap.Settings.LowStockThreshold) {
		view.LowStock = append(view.LowStock, ProductViewFor(role, p))
	}
	return view
}

func ProductViewFor(role string, p domain.Product) ProductView {
	return ProductView{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		Barcode:        p.Barcode,
		CostPrice:      sensitive(role, p.CostPrice),
		SellingPrice:   p.SellingPrice,
		Quantity:       p.Quantity,
		ExpirationDate: p.ExpirationDate,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func ProductViewsFor(role string, list []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(list))
	for _, p := range list {
		out = append(out, ProductViewFor(role, p))
	}
	return out
}

func SaleViewFor(role string, s domain.Sale) SaleView {
	return SaleView{
		ID:            s.ID,
		Date:          s.Date,
		Items:         itemViews(role, s.Items),
		TotalPrice:    s.TotalPrice,
		Profit:        sensitive(role, s.Profit),
		Quantity:      s.Quantity,
		PaymentMethod: s.PaymentMethod,
		Voided:        s.Voided,
		IsVoided:      s.Voided,
		VoidReason:    s.VoidReason,
		VoidedAt:      s.VoidedAt,
		HasReceipt:    s.Receipt != nil,
	}
}

func ReceiptViewFor(role string, r domain.Receipt) ReceiptView {
	return ReceiptView{
		ID:            r.ID,
		ReceiptID:     r.ReceiptID,
		Date:          r.Date,
		Items:         itemViews(role, r.Items),
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		Discount:      r.Discount,
		Total:         r.Total,
		Profit:        sensitive(role, r.Profit),
		Quantity:      r.Quantity,
		PaymentMethod: r.PaymentMethod,
		StoreName:     r.StoreName,
		CashierName:   r.CashierName,
		CustomerName:  r.CustomerName,
		AmountPaid:    r.AmountPaid,
		Change:        r.Change,
		Voided:        r.Voided,
		IsVoided:      r.IsVoided,
		VoidReason:    r.VoidReason,
		VoidedAt:      r.VoidedAt,
	}
}

func SettingsViewFor(s domain.Settings) SettingsView {
	return SettingsView{
		LowStockThreshold:     s.LowStockThreshold,
		Currency:              s.Currency,
		BusinessName:          s.BusinessName,
		TaxRate:               s.TaxRate,
		ReceiptFooter:         s.ReceiptFooter,
		AdminSwitchConfigured: s.AdminSwitchPasswordHash != "",
	}
}

func itemViews(role string, items []domain.SaleItem) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, ItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Cost:      sensitive(role, item.Cost),
			Total:     item.Total,
			Profit:    sensitive(role, item.Profit),
		})
	}
	return out
}

func sensitive(role string, value decimal.Decimal) *decimal.Decimal {
	if role != domain.RoleAdmin {
		return nil
	}
	return &value
}

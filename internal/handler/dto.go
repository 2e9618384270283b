package handler

import (
	"time"

	"github.com/samber/lo"

	"github.com/xenking/scan-and-go/internal/domain/analytics"
	"github.com/xenking/scan-and-go/internal/domain/catalog"
	"github.com/xenking/scan-and-go/internal/domain/order"
)

type storeDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UPIID         string `json:"upiId"`
	UPIQRTemplate string `json:"upiQrTemplate"`
}

// productDTO and the order DTOs carry money as JSON numbers.
type productDTO struct {
	ID       string  `json:"id"`
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type itemDTO struct {
	ProductID string  `json:"productId"`
	Barcode   string  `json:"barcode"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

type orderDTO struct {
	ID                string     `json:"id"`
	StoreID           string     `json:"storeId"`
	CustomerPhone     string     `json:"customerPhone"`
	Items             []itemDTO  `json:"items"`
	Subtotal          float64    `json:"subtotal"`
	Tax               float64    `json:"tax"`
	Total             float64    `json:"total"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	ClaimedAt         *time.Time `json:"claimedAt,omitempty"`
	UTRLast4          string     `json:"utrLast4,omitempty"`
	PaidAmount        *float64   `json:"paidAmount,omitempty"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy        string     `json:"verifiedBy,omitempty"`
	VerificationNotes string     `json:"verificationNotes,omitempty"`
	RejectedAt        *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason   string     `json:"rejectionReason,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

type paymentDTO struct {
	UPIID  string  `json:"upiId"`
	QRCode string  `json:"qrCode"`
	Amount float64 `json:"amount"`
}

type verificationDTO struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	CashierID string    `json:"cashierId"`
	Verified  bool      `json:"verified"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

type metricsDTO struct {
	TotalOrders       int     `json:"totalOrders"`
	TodayOrders       int     `json:"todayOrders"`
	CompletedOrders   int     `json:"completedOrders"`
	PendingOrders     int     `json:"pendingOrders"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TodayRevenue      float64 `json:"todayRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

func toStore(s catalog.Store) storeDTO {
	return storeDTO{ID: s.ID, Name: s.Name, UPIID: s.UPIID, UPIQRTemplate: s.UPIQRTemplate}
}

func toProduct(p catalog.Product) productDTO {
	return productDTO{
		ID:       p.ID,
		Barcode:  p.Barcode,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    p.Price.InexactFloat64(),
	}
}

func toProducts(ps []catalog.Product) []productDTO {
	return lo.Map(ps, func(p catalog.Product, _ int) productDTO { return toProduct(p) })
}

func toOrder(o *order.Order) orderDTO {
	dto := orderDTO{
		ID:            o.ID,
		StoreID:       o.StoreID,
		CustomerPhone: o.CustomerPhone,
		Items: lo.Map(o.Items, func(it order.Item, _ int) itemDTO {
			return itemDTO{
				ProductID: it.ProductID,
				Barcode:   it.Barcode,
				Name:      it.Name,
				Brand:     it.Brand,
				Category:  it.Category,
				Price:     it.Price.InexactFloat64(),
				Quantity:  it.Quantity,
				Total:     it.Total.InexactFloat64(),
			}
		}),
		Subtotal:          o.Subtotal.InexactFloat64(),
		Tax:               o.Tax.InexactFloat64(),
		Total:             o.Total.InexactFloat64(),
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		ExpiresAt:         o.ExpiresAt,
		ClaimedAt:         o.ClaimedAt,
		UTRLast4:          o.UTRLast4,
		VerifiedAt:        o.VerifiedAt,
		VerifiedBy:        o.VerifiedBy,
		VerificationNotes: o.VerificationNotes,
		RejectedAt:        o.RejectedAt,
		RejectionReason:   o.RejectionReason,
		CompletedAt:       o.CompletedAt,
	}
	if o.PaidAmount != nil {
		dto.PaidAmount = lo.ToPtr(o.PaidAmount.InexactFloat64())
	}
	return dto
}

func toOrders(os []order.Order) []orderDTO {
	return lo.Map(os, func(o order.Order, _ int) orderDTO { return toOrder(&o) })
}

func toVerification(r order.VerificationRecord) verificationDTO {
	return verificationDTO{
		ID:        r.ID,
		OrderID:   r.OrderID,
		CashierID: r.CashierID,
		Verified:  r.Verified,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func toMetrics(m analytics.Metrics) metricsDTO {
	return metricsDTO{
		TotalOrders:       m.TotalOrders,
		TodayOrders:       m.TodayOrders,
		CompletedOrders:   m.CompletedOrders,
		PendingOrders:     m.PendingOrders,
		TotalRevenue:      m.TotalRevenue.InexactFloat64(),
		TodayRevenue:      m.TodayRevenue.InexactFloat64(),
		AverageOrderValue: m.AverageOrderValue.InexactFloat64(),
	}
}

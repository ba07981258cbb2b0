package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/reporting"
)

var _ reporting.Reader = (*Store)(nil)

var invoiceOrder = map[string]string{
	reporting.SortDateDesc:   "invoices.date DESC, invoices.created_at DESC",
	reporting.SortDateAsc:    "invoices.date ASC, invoices.created_at ASC",
	reporting.SortAmountDesc: "invoices.total_amount DESC, invoices.date DESC",
	reporting.SortAmountAsc:  "invoices.total_amount ASC, invoices.date DESC",
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Totals(ctx context.Context) (reporting.Totals, error) {
	var t reporting.Totals
	db := s.db.WithContext(ctx)
	for _, c := range []struct {
		model any
		dst   *int64
	}{
		{&models.Vendor{}, &t.Vendors},
		{&models.Customer{}, &t.Customers},
		{&models.Invoice{}, &t.Invoices},
		{&models.LineItem{}, &t.LineItems},
		{&models.Payment{}, &t.Payments},
		{&models.Document{}, &t.Documents},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return reporting.Totals{}, err
		}
	}
	return t, nil
}

func (s *Store) Stats(ctx context.Context) (reporting.Stats, error) {
	var row struct {
		TotalSpend decimal.Decimal
		Invoices   int64
		AvgValue   decimal.Decimal
	}
	db := s.db.WithContext(ctx)
	err := db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_spend, COUNT(*) AS invoices, COALESCE(AVG(total_amount), 0) AS avg_value").
		Scan(&row).Error
	if err != nil {
		return reporting.Stats{}, err
	}

	var documents int64
	if err := db.Model(&models.Document{}).Count(&documents).Error; err != nil {
		return reporting.Stats{}, err
	}

	return reporting.Stats{
		TotalSpend:        row.TotalSpend,
		InvoicesProcessed: row.Invoices,
		DocumentsUploaded: documents,
		AvgInvoiceValue:   row.AvgValue.Round(2),
	}, nil
}

func (s *Store) ListInvoices(ctx context.Context, q reporting.InvoiceQuery) (reporting.InvoicePage, error) {
	base := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Joins("LEFT JOIN vendors ON vendors.id = invoices.vendor_id")
	if q.Search != "" {
		like := "%" + q.Search + "%"
		base = base.Where("invoices.invoice_number ILIKE ? OR vendors.name ILIKE ?", like, like)
	}

	var page reporting.InvoicePage
	if err := base.Session(&gorm.Session{}).Count(&page.TotalCount).Error; err != nil {
		return page, err
	}

	order, ok := invoiceOrder[q.Sort]
	if !ok {
		order = invoiceOrder[reporting.SortDateDesc]
	}

	var invoices []models.Invoice
	err := base.Session(&gorm.Session{}).
		Preload("Vendor").
		Order(order).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&invoices).Error
	if err != nil {
		return page, err
	}

	page.Items = make([]reporting.InvoiceItem, 0, len(invoices))
	for _, inv := range invoices {
		item := reporting.InvoiceItem{
			InvoiceNumber: inv.InvoiceNumber,
			Date:          inv.Date.Format("2006-01-02"),
			TotalAmount:   inv.TotalAmount,
			Status:        inv.Status,
		}
		if inv.Vendor != nil {
			item.Vendor.Name = inv.Vendor.Name
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func (s *Store) TopVendors(ctx context.Context, limit int) ([]reporting.VendorSpend, error) {
	var rows []struct {
		ID    uuid.UUID
		Name  string
		Spend decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.Vendor{}).
		Select("vendors.id, vendors.name, COALESCE(SUM(invoices.total_amount), 0) AS spend").
		Joins("JOIN invoices ON invoices.vendor_id = vendors.id").
		Group("vendors.id, vendors.name").
		Order("spend DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]reporting.VendorSpend, 0, len(rows))
	for _, r := range rows {
		out = append(out, reporting.VendorSpend{VendorID: r.ID, Name: r.Name, Spend: r.Spend})
	}
	return out, nil
}

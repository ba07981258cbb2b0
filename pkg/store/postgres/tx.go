package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/normalizer"
	"scan-in-analytics/pkg/store"
)

type pgTx struct {
	db *gorm.DB
}

// Transaction opens a SAVEPOINT inside the current transaction.
func (t *pgTx) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return t.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&pgTx{db: db})
	})
}

func (t *pgTx) UpsertVendor(ctx context.Context, d normalizer.VendorDraft) (uuid.UUID, bool, error) {
	db := t.db.WithContext(ctx)

	var existing models.Vendor
	err := db.Where("vendor_id = ?", d.NaturalKey).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := store.NewVendor(d)
		if err := db.Create(&row).Error; err != nil {
			return uuid.Nil, false, err
		}
		return row.ID, true, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	row := store.NewVendor(d)
	err = db.Model(&existing).Select("name", "category", "attributes").Updates(&row).Error
	return existing.ID, false, err
}

func (t *pgTx) UpsertCustomer(ctx context.Context, d normalizer.CustomerDraft) (uuid.UUID, bool, error) {
	db := t.db.WithContext(ctx)

	var existing models.Customer
	err := db.Where("customer_id = ?", d.NaturalKey).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := store.NewCustomer(d)
		if err := db.Create(&row).Error; err != nil {
			return uuid.Nil, false, err
		}
		return row.ID, true, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	row := store.NewCustomer(d)
	err = db.Model(&existing).Select("name", "attributes").Updates(&row).Error
	return existing.ID, false, err
}

func (t *pgTx) CreateInvoice(ctx context.Context, d normalizer.InvoiceDraft, vendorID, customerID *uuid.UUID) (uuid.UUID, error) {
	row := store.NewInvoice(d, vendorID, customerID)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (t *pgTx) CreateLineItem(ctx context.Context, invoiceID uuid.UUID, d normalizer.LineItemDraft) error {
	row := store.NewLineItem(invoiceID, d)
	return t.db.WithContext(ctx).Create(&row).Error
}

func (t *pgTx) CreatePayment(ctx context.Context, invoiceID uuid.UUID, d normalizer.PaymentDraft) error {
	row := store.NewPayment(invoiceID, d)
	return t.db.WithContext(ctx).Create(&row).Error
}

func (t *pgTx) CreateDocument(ctx context.Context, invoiceID uuid.UUID, d normalizer.DocumentDraft) error {
	row := store.NewDocument(invoiceID, d)
	return t.db.WithContext(ctx).Create(&row).Error
}

func (t *pgTx) InvoiceExists(ctx context.Context, sourceID string) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.Invoice{}).Where("source_id = ?", sourceID).Limit(1).Count(&n).Error
	return n > 0, err
}

package store

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/services/normalizer"
)

// Row builders shared by the store implementations.

func NewVendor(d normalizer.VendorDraft) models.Vendor {
	return models.Vendor{
		VendorID:   d.NaturalKey,
		Name:       d.Name,
		Category:   d.Category,
		Attributes: datatypes.JSONMap(d.Attributes),
	}
}

func NewCustomer(d normalizer.CustomerDraft) models.Customer {
	return models.Customer{
		CustomerID: d.NaturalKey,
		Name:       d.Name,
		Attributes: datatypes.JSONMap(d.Attributes),
	}
}

func NewInvoice(d normalizer.InvoiceDraft, vendorID, customerID *uuid.UUID) models.Invoice {
	return models.Invoice{
		SourceID:      d.SourceID,
		InvoiceNumber: d.InvoiceNumber,
		VendorID:      vendorID,
		CustomerID:    customerID,
		Date:          d.Date,
		DueDate:       d.DueDate,
		Status:        d.Status,
		Currency:      d.Currency,
		Subtotal:      d.Subtotal,
		Tax:           d.Tax,
		TotalAmount:   d.TotalAmount,
	}
}

func NewLineItem(invoiceID uuid.UUID, d normalizer.LineItemDraft) models.LineItem {
	return models.LineItem{
		InvoiceID:   invoiceID,
		Description: d.Description,
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		Total:       d.Total,
		Category:    d.Category,
	}
}

func NewPayment(invoiceID uuid.UUID, d normalizer.PaymentDraft) models.Payment {
	return models.Payment{
		InvoiceID: invoiceID,
		Amount:    d.Amount,
		Method:    d.Method,
		Date:      d.Date,
		Status:    d.Status,
	}
}

func NewDocument(invoiceID uuid.UUID, d normalizer.DocumentDraft) models.Document {
	return models.Document{
		InvoiceID:  invoiceID,
		FileName:   d.FileName,
		URL:        d.URL,
		UploadedAt: d.UploadedAt,
	}
}

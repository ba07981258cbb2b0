package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Vendor is a supplier deduplicated by its natural key.
type Vendor struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	VendorID   string            `gorm:"uniqueIndex;not null" json:"vendor_id"`
	Name       string            `gorm:"not null" json:"name"`
	Category   *string           `json:"category"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Customer is the billed party deduplicated by its natural key.
type Customer struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID string            `gorm:"uniqueIndex;not null" json:"customer_id"`
	Name       string            `gorm:"not null" json:"name"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Invoice represents an invoice document with extracted information
type Invoice struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID      string              `gorm:"index" json:"source_id"`
	InvoiceNumber string              `gorm:"index;not null" json:"invoice_number"`
	VendorID      *uuid.UUID          `gorm:"type:uuid;index" json:"vendor_id"`
	Vendor        *Vendor             `json:"vendor,omitempty"`
	CustomerID    *uuid.UUID          `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer           `json:"customer,omitempty"`
	Date          time.Time           `gorm:"type:date;not null" json:"date"`
	DueDate       *time.Time          `gorm:"type:date" json:"due_date"`
	Status        string              `gorm:"not null;default:'unpaid'" json:"status"`
	Currency      string              `gorm:"not null;default:'EUR'" json:"currency"`
	Subtotal      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"subtotal"`
	Tax           decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"tax"`
	TotalAmount   decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	LineItems     []LineItem          `gorm:"constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	Payments      []Payment           `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	Documents     []Document          `gorm:"constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// LineItem is a single position of an invoice.
type LineItem struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID           `gorm:"type:uuid;index;not null" json:"invoice_id"`
	Description *string             `json:"description"`
	Quantity    decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"quantity"`
	UnitPrice   decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"unit_price"`
	Total       decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"total"`
	Category    *string             `json:"category"`
}

type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;index;not null" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Method    *string         `json:"method"`
	Date      *time.Time      `gorm:"type:date" json:"date"`
	Status    string          `gorm:"not null;default:'pending'" json:"status"`
}

// Document points at the scanned source file of an invoice.
type Document struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID  uuid.UUID `gorm:"type:uuid;index;not null" json:"invoice_id"`
	FileName   *string   `json:"file_name"`
	URL        *string   `json:"url"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}

// IngestRun records one execution of the ingestion pipeline.
type IngestRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FileName   string         `json:"file_name"`
	Checksum   string         `gorm:"index;size:16" json:"checksum"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Summary    datatypes.JSON `gorm:"type:jsonb" json:"summary"`
}

// All lists the models in dependency order, parents first.
func All() []any {
	return []any{&Vendor{}, &Customer{}, &Invoice{}, &LineItem{}, &Payment{}, &Document{}, &IngestRun{}}
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (l *LineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (r *IngestRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

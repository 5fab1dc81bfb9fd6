package domain

import "time"

type PrinterKind string

const (
	PrinterBluetooth PrinterKind = "bluetooth"
	PrinterNetwork   PrinterKind = "network"
	PrinterVendorApp PrinterKind = "vendor-app"
	PrinterNone      PrinterKind = "none"
)

// PrinterConfig is tenant- or device-scoped and read-only to this
// core; the admin UI owns its lifecycle.
type PrinterConfig struct {
	Kind     PrinterKind `json:"kind"`
	DeviceID string      `json:"deviceId,omitempty"` // bluetooth address
	Host     string      `json:"host,omitempty"`     // network printer ip
	Port     int         `json:"port,omitempty"`     // network printer port, 9100 by convention
	Endpoint string      `json:"endpoint,omitempty"` // POS relay url
	APIKey   string      `json:"apiKey,omitempty"`
	Profile  string      `json:"profile,omitempty"` // escpos-58mm | escpos-80mm
}

// PrintSettings is the tenant auto-print gate fetched at trigger time.
type PrintSettings struct {
	TenantID  string        `json:"tenantId"`
	AutoPrint bool          `json:"autoPrint"`
	Printer   PrinterConfig `json:"printer"`
}

// PrintRecord is the audit entry written for every print attempt,
// success or failure.
type PrintRecord struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	TenantID  string    `json:"tenantId"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"` // printed | failed
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

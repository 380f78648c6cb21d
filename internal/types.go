package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type SourceKind string

const (
	SourceXLSX   SourceKind = "xlsx"
	SourceCSV    SourceKind = "csv"
	SourceHTML   SourceKind = "html"
	SourcePDF    SourceKind = "pdf"
	SourceSheets SourceKind = "gsheets"
	SourceMail   SourceKind = "mail"
)

// RawGrid is a sheet as read from its source: no header row is assumed and
// cells keep whatever type the reader produced (string, float64, time.Time,
// bool or nil).
type RawGrid [][]any

type Table struct {
	Columns []string
	Rows    [][]any
}

func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

type Field string

const (
	FieldReference        Field = "reference"
	FieldDescription      Field = "description"
	FieldDate             Field = "date"
	FieldAmount           Field = "amount"
	FieldQuantity         Field = "quantity"
	FieldCounterpartyCode Field = "counterparty_code"
	FieldSellerCode       Field = "seller_code"
	FieldJoinKey          Field = "join_key"
	FieldCustomerName     Field = "customer_name"
	FieldCrossRef         Field = "cross_ref"
	FieldPlatform         Field = "platform"
	FieldLocation         Field = "location"
	FieldTitle            Field = "title"
)

var CanonicalFields = []Field{
	FieldReference, FieldDescription, FieldDate, FieldAmount, FieldQuantity,
	FieldCounterpartyCode, FieldSellerCode, FieldJoinKey, FieldCustomerName,
	FieldCrossRef, FieldPlatform, FieldLocation, FieldTitle,
}

type CommerceSource string

const (
	CommerceFromCatalog  CommerceSource = "CATALOG"
	CommerceFromOverride CommerceSource = "OVERRIDE"
	CommerceFromText     CommerceSource = "TEXT"
	CommerceFromRawCode  CommerceSource = "RAW_CODE"
	CommerceUnclassified CommerceSource = "NONE"
)

type Transaction struct {
	Reference        string            `json:"reference"`
	Description      string            `json:"description,omitempty"`
	Date             *time.Time        `json:"date"`
	Amount           decimal.Decimal   `json:"amount"`
	Quantity         decimal.Decimal   `json:"quantity"`
	CounterpartyCode string            `json:"counterpartyCode,omitempty"`
	SellerCode       string            `json:"sellerCode,omitempty"`
	Period           string            `json:"period,omitempty"`
	JoinKey          string            `json:"joinKey,omitempty"`
	CustomerName     string            `json:"customerName,omitempty"`
	CrossRef         string            `json:"crossRef,omitempty"`
	Platform         string            `json:"platform,omitempty"`
	Location         string            `json:"location,omitempty"`
	Title            string            `json:"title,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	// ZeroFilled lists the decimal fields set to zero because their cell was
	// absent or unreadable, as opposed to a zero read from the source.
	ZeroFilled []Field `json:"-"`

	Commerce       string         `json:"commerce,omitempty"`
	CommerceSource CommerceSource `json:"commerceSource,omitempty"`
	Seller         string         `json:"seller,omitempty"`
	Channel        string         `json:"channel,omitempty"`
	City           string         `json:"city,omitempty"`
	Department     string         `json:"department,omitempty"`
}

func (t Transaction) IsZeroFilled(field Field) bool {
	for _, f := range t.ZeroFilled {
		if f == field {
			return true
		}
	}
	return false
}

func (t Transaction) Text(field Field) string {
	switch field {
	case FieldReference:
		return t.Reference
	case FieldDescription:
		return t.Description
	case FieldCounterpartyCode:
		return t.CounterpartyCode
	case FieldSellerCode:
		return t.SellerCode
	case FieldJoinKey:
		return t.JoinKey
	case FieldCustomerName:
		return t.CustomerName
	case FieldCrossRef:
		return t.CrossRef
	case FieldPlatform:
		return t.Platform
	case FieldLocation:
		return t.Location
	case FieldTitle:
		return t.Title
	default:
		return t.Attributes[string(field)]
	}
}

type CatalogEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type EntityValue struct {
	Entity string
	Value  float64
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// IntakeMessage is a stored mail message whose spreadsheet attachments feed
// the pipeline.
type IntakeMessage struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type RunRecord struct {
	TraceID   string
	Label     string
	Timings   map[string]float64
	Counts    map[string]int
	Warnings  []string
	CreatedAt string
}

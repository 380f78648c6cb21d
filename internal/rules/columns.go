package rules

import (
	"strings"

	"ledgerrecon/internal"
)

// ColumnRule maps a normalized raw header to a canonical field. Any needs at
// least one token present, All needs every token, None rejects the column
// when a token is present, Exact matches the whole header.
type ColumnRule struct {
	Field     internal.Field `yaml:"field"`
	Any       []string       `yaml:"any,omitempty"`
	All       []string       `yaml:"all,omitempty"`
	None      []string       `yaml:"none,omitempty"`
	Exact     []string       `yaml:"exact,omitempty"`
	FirstOnly bool           `yaml:"first_only,omitempty"`
}

func (r ColumnRule) Matches(header string) bool {
	for _, e := range r.Exact {
		if header == e {
			return true
		}
	}
	if len(r.Any) == 0 && len(r.All) == 0 {
		return false
	}
	for _, n := range r.None {
		if strings.Contains(header, n) {
			return false
		}
	}
	if len(r.Any) > 0 {
		hit := false
		for _, a := range r.Any {
			if strings.Contains(header, a) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, a := range r.All {
		if !strings.Contains(header, a) {
			return false
		}
	}
	return true
}

// DefaultColumnRules covers the sales ledger, the per-line auxiliary and the
// dispatch/order sheets exported by the accounting system.
func DefaultColumnRules() []ColumnRule {
	return []ColumnRule{
		{Field: internal.FieldCrossRef, All: []string{"C MP", "CR"}, Exact: []string{"CMP CR", "CMP. CR"}, FirstOnly: true},
		{Field: internal.FieldJoinKey, Exact: []string{"NRO", "NRO.", "NUMERO", "NRO. CRUCE", "NRO CRUCE", "NUMERO CRUCE"}, FirstOnly: true},
		{Field: internal.FieldReference, Any: []string{"REFERENCIA"}, Exact: []string{"REF", "SKU", "SKU EKM", "REFERENCE"}},
		{Field: internal.FieldDescription, Any: []string{"DESCRIP"}},
		{Field: internal.FieldCounterpartyCode, Any: []string{"COMPROBA"}, Exact: []string{"VOUCHER"}},
		{Field: internal.FieldDate, Any: []string{"FECHA"}, None: []string{"DESPACHO", "VENC", "ENTREGA"}, Exact: []string{"DATE"}, FirstOnly: true},
		{Field: internal.FieldSellerCode, Any: []string{"VEND"}, None: []string{"VENDEDOR"}, Exact: []string{"SELLER"}},
		{Field: internal.FieldAmount, Any: []string{"VAL.ENTREGA", "VAL ENTREGA", "VALOR", "GRAVADAS"}, Exact: []string{"AMOUNT"}, FirstOnly: true},
		{Field: internal.FieldQuantity, Any: []string{"CANT.ENTREGA", "CANT ENTREGA", "CANTIDAD"}, Exact: []string{"QUANTITY"}, FirstOnly: true},
		{Field: internal.FieldCustomerName, Exact: []string{"NOMBRE", "CLIENTE", "NOMBRE CLIENTE", "CUSTOMER"}, FirstOnly: true},
		{Field: internal.FieldPlatform, Exact: []string{"PLATAFORMA", "CANAL", "PLATFORM"}, FirstOnly: true},
		{Field: internal.FieldLocation, Any: []string{"CIUDAD"}, Exact: []string{"COS", "DESTINO", "LOCATION"}, FirstOnly: true},
		{Field: internal.FieldTitle, Any: []string{"TITULO", "TÍTULO"}, Exact: []string{"TITLE", "PRODUCTO"}, FirstOnly: true},
	}
}

// DefaultRequired are the fields a sales ledger line cannot be loaded
// without.
func DefaultRequired() []internal.Field {
	return []internal.Field{internal.FieldReference, internal.FieldDate, internal.FieldAmount, internal.FieldQuantity}
}

// DefaultHeaderKeywords are searched in the first rows of a grid.
func DefaultHeaderKeywords() []string {
	return []string{"REFERENCIA", "FECHA", "COMPROBA", "VALOR", "CANTIDAD", "REFERENCE", "DATE", "VOUCHER", "AMOUNT", "QUANTITY", "NRO"}
}

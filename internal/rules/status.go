package rules

import "ledgerrecon/internal/util"

// StatusRules classifies the ESTATUS values of dispatch and order sheets.
type StatusRules struct {
	Delivered []string `yaml:"delivered"`
	Open      []string `yaml:"open"`
}

func DefaultStatuses() StatusRules {
	return StatusRules{
		Delivered: []string{"ENTREGADO", "ENTREGADA", "DELIVERED", "COMPLETADO", "DESPACHADO", "DEPACHADO"},
		Open:      []string{"PRODUCCION"},
	}
}

func (s StatusRules) IsDelivered(status string) bool {
	return containsStatus(s.Delivered, status)
}

// IsOpen reports whether an order in this status can still fall due. An
// empty Open list accepts every status that is not delivered.
func (s StatusRules) IsOpen(status string) bool {
	if s.IsDelivered(status) {
		return false
	}
	if len(s.Open) == 0 {
		return true
	}
	return containsStatus(s.Open, status)
}

func containsStatus(list []string, status string) bool {
	want := util.UpperFolded(status)
	if want == "" {
		return false
	}
	for _, s := range list {
		if util.UpperFolded(s) == want {
			return true
		}
	}
	return false
}

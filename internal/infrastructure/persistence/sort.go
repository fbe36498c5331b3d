package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortRule whitelists the columns a listing may be ordered by. Anything
// outside the whitelist falls back to defaultField, so user input never
// reaches the ORDER BY clause.
type sortRule struct {
	table        string
	fields       map[string]bool
	defaultField string
	defaultDesc  bool
}

// order builds the ORDER BY column for the requested field and direction.
// An empty or unknown direction keeps the rule's default direction.
func (s sortRule) order(orderBy, orderDir string) clause.OrderByColumn {
	field := strings.TrimSpace(orderBy)
	if !s.fields[field] {
		field = s.defaultField
	}
	desc := s.defaultDesc
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		desc = false
	case "DESC":
		desc = true
	}
	return clause.OrderByColumn{
		Column: clause.Column{Table: s.table, Name: field},
		Desc:   desc,
	}
}

var studentSort = sortRule{
	fields: map[string]bool{
		"created_at": true,
		"student_id": true,
		"name":       true,
		"class_name": true,
		"section":    true,
	},
	defaultField: "name",
}

var transactionSort = sortRule{
	table: "fee_transactions",
	fields: map[string]bool{
		"created_at":   true,
		"payment_date": true,
		"amount":       true,
		"receipt_no":   true,
		"student_id":   true,
	},
	defaultField: "payment_date",
	defaultDesc:  true,
}

package logger

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Field keys shared by fee log lines so they can be queried uniformly
const (
	FieldStudentID = "student_id"
	FieldSessionID = "session_id"
	FieldBillNo    = "bill_no"
	FieldReceiptNo = "receipt_no"
	FieldAmount    = "amount"
)

// StudentID returns the student code field
func StudentID(id string) zap.Field {
	return zap.String(FieldStudentID, id)
}

// SessionID returns the academic session field
func SessionID(id int) zap.Field {
	return zap.Int(FieldSessionID, id)
}

// BillNo returns the demand bill number field
func BillNo(no string) zap.Field {
	return zap.String(FieldBillNo, no)
}

// ReceiptNo returns the receipt number field
func ReceiptNo(no string) zap.Field {
	return zap.String(FieldReceiptNo, no)
}

// Amount logs a money value as its exact string form
func Amount(v decimal.Decimal) zap.Field {
	return zap.String(FieldAmount, v.StringFixed(2))
}

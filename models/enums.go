package models

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

type GstMode string

const (
	GstModeIntra GstMode = "intra"
	GstModeInter GstMode = "inter"
)

func (m GstMode) IsValid() bool {
	return m == GstModeIntra || m == GstModeInter
}

func (m GstMode) IsInterState() bool {
	return m == GstModeInter
}

type BillStatus string

const (
	BillStatusDraft    BillStatus = "draft"
	BillStatusRecorded BillStatus = "recorded"
)

func (s BillStatus) IsValid() bool {
	return s == BillStatusDraft || s == BillStatusRecorded
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodUpi          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUpi, PaymentMethodBankTransfer:
		return true
	}
	return false
}

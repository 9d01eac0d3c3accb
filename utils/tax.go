package utils

import "github.com/shopspring/decimal"

type LineTax struct {
	Amount decimal.Decimal
	Tax    decimal.Decimal
	Cgst   decimal.Decimal
	Sgst   decimal.Decimal
	Igst   decimal.Decimal
}

type DocumentTotals struct {
	Subtotal            decimal.Decimal
	TaxAmount           decimal.Decimal
	Total               decimal.Decimal
	EffectiveTaxPercent decimal.Decimal
}

// ResolveTaxPercent picks the product override, then the tenant default, then zero.
func ResolveTaxPercent(productOverride *decimal.Decimal, tenantDefault *decimal.Decimal) decimal.Decimal {
	if productOverride != nil {
		return *productOverride
	}
	if tenantDefault != nil {
		return *tenantDefault
	}
	return decimalZero
}

// SplitLineTax computes the line amount and its tax split.
// Intra-state tax is halved into CGST and SGST with SGST absorbing the remainder;
// inter-state tax is carried whole as IGST.
func SplitLineTax(qty, unitPrice, taxPercent decimal.Decimal, interState bool) LineTax {
	amount := Round(qty.Mul(unitPrice))
	tax := Round(amount.Mul(taxPercent).Div(decimalOneHundred))

	line := LineTax{
		Amount: amount,
		Tax:    tax,
		Cgst:   decimalZero,
		Sgst:   decimalZero,
		Igst:   decimalZero,
	}
	if interState {
		line.Igst = tax
		return line
	}
	line.Cgst = Round(tax.Div(decimalTwo))
	line.Sgst = Round(tax.Sub(line.Cgst))
	return line
}

// SumDocumentTotals rolls line splits up to document totals.
// The effective percent is for display only and falls back to the tenant default on a zero subtotal.
func SumDocumentTotals(lines []LineTax, tenantDefault decimal.Decimal) DocumentTotals {
	subtotal := decimalZero
	taxAmount := decimalZero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount)
		taxAmount = taxAmount.Add(l.Cgst).Add(l.Sgst).Add(l.Igst)
	}
	subtotal = Round(subtotal)
	taxAmount = Round(taxAmount)

	effective := tenantDefault
	if subtotal.IsPositive() {
		effective = Round(taxAmount.Div(subtotal).Mul(decimalOneHundred))
	}
	return DocumentTotals{
		Subtotal:            subtotal,
		TaxAmount:           taxAmount,
		Total:               Round(subtotal.Add(taxAmount)),
		EffectiveTaxPercent: effective,
	}
}

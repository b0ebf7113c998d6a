package domain

import "github.com/shopspring/decimal"

// PricingPolicy задаёт внешние параметры расчёта итогов корзины.
type PricingPolicy struct {
	// TaxRate — ставка налога, уже включённого в цены (0.25 = 25%).
	TaxRate decimal.Decimal
	// FreeShippingThresholdMinor — сумма с налогом, начиная с которой доставка бесплатна.
	FreeShippingThresholdMinor int64
	// ShippingFeeMinor — фиксированная стоимость доставки ниже порога.
	ShippingFeeMinor int64
}

// Totals — итоги корзины в минимальных денежных единицах.
type Totals struct {
	SubtotalMinor int64 `json:"subtotal_minor"`
	TaxMinor      int64 `json:"tax_minor"`
	ShippingMinor int64 `json:"shipping_minor"`
	TotalMinor    int64 `json:"total_minor"`
	ItemCount     int   `json:"item_count"`
}

// ComputeTotals считает итоги: subtotal = Σ price*qty (налог включён),
// tax = subtotal - subtotal/(1+rate), доставка зависит только от subtotal.
func ComputeTotals(lines Lines, policy PricingPolicy) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPriceMinor * int64(l.Quantity)
	}

	shipping := ShippingFee(subtotal, policy)
	return Totals{
		SubtotalMinor: subtotal,
		TaxMinor:      IncludedTax(subtotal, policy.TaxRate),
		ShippingMinor: shipping,
		TotalMinor:    subtotal + shipping,
		ItemCount:     lines.ItemCount(),
	}
}

// IncludedTax выделяет налог из суммы, в которую он уже включён.
// Округление — к ближайшей минимальной единице.
func IncludedTax(totalMinor int64, rate decimal.Decimal) int64 {
	if totalMinor == 0 || !rate.IsPositive() {
		return 0
	}
	total := decimal.NewFromInt(totalMinor)
	net := total.Div(decimal.NewFromInt(1).Add(rate))
	return total.Sub(net).Round(0).IntPart()
}

// ShippingFee возвращает стоимость доставки для суммы с налогом.
// Пустая корзина доставку не оплачивает.
func ShippingFee(subtotalMinor int64, policy PricingPolicy) int64 {
	if subtotalMinor <= 0 {
		return 0
	}
	if policy.FreeShippingThresholdMinor > 0 && subtotalMinor >= policy.FreeShippingThresholdMinor {
		return 0
	}
	return policy.ShippingFeeMinor
}

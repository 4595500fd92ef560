package domain

import "strings"

const (
	carrierTitleTag  = "Fedex"
	carrierSourceTag = "fedex"
)

// MatchesCarrier — единственный предикат выбора перевозчика.
// Сравнение регистрозависимое: "Fedex" в title или "fedex" в source.
func MatchesCarrier(line ShippingLine) bool {
	return strings.Contains(line.Title, carrierTitleTag) || strings.Contains(line.Source, carrierSourceTag)
}

// FindCarrierLine возвращает первую подходящую строку доставки.
func FindCarrierLine(lines []ShippingLine) (ShippingLine, bool) {
	for _, line := range lines {
		if MatchesCarrier(line) {
			return line, true
		}
	}
	return ShippingLine{}, false
}

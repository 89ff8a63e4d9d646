package enums

import "fmt"

// BuyerType distinguishes bulk wholesalers from retailers.
type BuyerType string

const (
	BuyerTypeWholesaler BuyerType = "wholesaler"
	BuyerTypeRetailer   BuyerType = "retailer"
)

var validBuyerTypes = []BuyerType{
	BuyerTypeWholesaler,
	BuyerTypeRetailer,
}

// IsValid reports whether the value is a known BuyerType.
func (b BuyerType) IsValid() bool {
	for _, candidate := range validBuyerTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBuyerType converts raw input into a BuyerType.
func ParseBuyerType(value string) (BuyerType, error) {
	for _, candidate := range validBuyerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid buyer type %q", value)
}

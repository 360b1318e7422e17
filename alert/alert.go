package alert

// Item is the minimal stock view the alert derivation needs.
type Item struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Barcode  string `json:"barcode"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

// Alert flags a stock position that has fallen below the threshold.
type Alert struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Location string `json:"location"`
}

// Compute derives low-stock alerts from an item list. Pure: the result
// depends only on the inputs, so callers may recompute it on every
// inventory change and always observe a consistent pair.
func Compute(items []Item, threshold int) []Alert {
	alerts := make([]Alert, 0)
	for _, it := range items {
		if it.Quantity < threshold {
			alerts = append(alerts, Alert{
				Name:     it.Name,
				Count:    it.Quantity,
				Location: it.Location,
			})
		}
	}
	return alerts
}

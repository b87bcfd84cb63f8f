package models

import "time"

// NotificationState records that an alert has fired for a (product, shop)
// pair. While a row exists the pair is muted; deleting the row re-arms it.
// LastPrice is the price the alert fired at, used to detect increases.
type NotificationState struct {
	ProductID  string
	ShopID     string
	NotifiedAt time.Time
	LastPrice  *float64
	Available  bool
}

// Key identifies the (product, shop) pair.
func (s NotificationState) Key() string {
	return StateKey(s.ProductID, s.ShopID)
}

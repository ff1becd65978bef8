package entity

import "time"

// Voucher is a gift voucher (Gutschein) sold by the farm.
// PurchaseDate and RedeemedDate carry no meaningful time of day.
type Voucher struct {
	ID           string     `json:"gutscheinnummer"`
	PurchaseDate time.Time  `json:"kaufdatum"`
	Amount       float64    `json:"betrag"`
	RedeemedDate *time.Time `json:"eingeloestAm,omitempty"`
	SoldTo       string     `json:"verkauftAn,omitempty"`
	ETag         string     `json:"-"`
	Timestamp    time.Time  `json:"-"`
}

// IsRedeemed reports whether the one-time redemption already happened
func (v *Voucher) IsRedeemed() bool {
	return v.RedeemedDate != nil
}

package voucher

import (
	"sort"

	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
)

// SortForListing orders vouchers newest purchase first; vouchers bought on the
// same day are ordered by number, greatest first.
func SortForListing(vouchers []*entity.Voucher) {
	sort.SliceStable(vouchers, func(i, j int) bool {
		a, b := vouchers[i], vouchers[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.After(b.PurchaseDate)
		}
		return a.ID > b.ID
	})
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is one currency quote from a central bank bulletin. Rates are
// expressed in units of the base currency per unit of Currency.
type ExchangeRate struct {
	Date        time.Time
	Currency    string
	BuyingRate  decimal.Decimal
	SellingRate decimal.Decimal
	BulletinID  int64
}

package domain

import "time"

// HistoryKind is the direction of a ledger movement.
type HistoryKind string

const (
	KindPayment     HistoryKind = "PAYMENT"
	KindTransferOut HistoryKind = "TRANSFER_OUT"
	KindTransferIn  HistoryKind = "TRANSFER_IN"
)

// Category classifies a history record.
type Category string

const (
	CategoryFood           Category = "FOOD"
	CategoryCafe           Category = "CAFE"
	CategoryShopping       Category = "SHOPPING"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryHousing        Category = "HOUSING"
	CategoryMedical        Category = "MEDICAL"
	CategoryEducation      Category = "EDUCATION"
	CategoryCulture        Category = "CULTURE"
	CategoryTravel         Category = "TRAVEL"
	CategoryEtc            Category = "ETC"
	CategoryTransfer       Category = "TRANSFER"
)

var categories = map[Category]struct{}{
	CategoryFood:           {},
	CategoryCafe:           {},
	CategoryShopping:       {},
	CategoryTransportation: {},
	CategoryHousing:        {},
	CategoryMedical:        {},
	CategoryEducation:      {},
	CategoryCulture:        {},
	CategoryTravel:         {},
	CategoryEtc:            {},
	CategoryTransfer:       {},
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// HistoryRecord is an immutable fact describing one balance movement.
// ID and CreatedAt are assigned by the store when the record is appended.
// TransferTarget is set only on transfer legs and points at the other leg's account.
type HistoryRecord struct {
	ID             int64       `json:"id"`
	AccountNumber  string      `json:"accountNumber"`
	Amount         int64       `json:"amount"`
	Kind           HistoryKind `json:"kind"`
	Category       Category    `json:"category"`
	Name           string      `json:"name"`
	TransferTarget *string     `json:"transferTarget,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Snapshot returns a detached copy of the record that shares no memory with r.
func (r HistoryRecord) Snapshot() HistoryRecord {
	if r.TransferTarget != nil {
		target := *r.TransferTarget
		r.TransferTarget = &target
	}
	return r
}

package domain

// PaymentRequest debits a single account for a merchant purchase.
type PaymentRequest struct {
	AccountNumber string
	Password      string
	Amount        int64
	Category      Category
	MerchantName  string
}

// PaymentResult is returned after the payment transaction commits.
type PaymentResult struct {
	HistoryID int64 `json:"historyId"`
	Balance   int64 `json:"resultingBalance"`
}

// TransferRequest moves Amount from one account to another.
// Memo, when nil, is replaced by the default transfer labels.
type TransferRequest struct {
	FromAccountNumber string
	Password          string
	ToAccountNumber   string
	Amount            int64
	Memo              *string
}

// TransferResult carries both legs of a committed transfer.
type TransferResult struct {
	DebitHistoryID     int64 `json:"debitHistoryId"`
	CreditHistoryID    int64 `json:"creditHistoryId"`
	SourceBalance      int64 `json:"sourceBalance"`
	DestinationBalance int64 `json:"destinationBalance"`
}

const (
	DefaultTransferOutName = "Transfer out"
	DefaultTransferInName  = "Transfer in"
)

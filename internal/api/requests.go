package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(err)
	}
	return v
}

type paymentRequest struct {
	AccountNumber string `json:"accountNumber" validate:"required,max=20"`
	Password      string `json:"password" validate:"required"`
	Amount        int64  `json:"amount"`
	Category      string `json:"category" validate:"required,category"`
	MerchantName  string `json:"merchantName" validate:"required,max=100"`
}

func (p paymentRequest) toDomain() domain.PaymentRequest {
	return domain.PaymentRequest{
		AccountNumber: p.AccountNumber,
		Password:      p.Password,
		Amount:        p.Amount,
		Category:      domain.Category(p.Category),
		MerchantName:  p.MerchantName,
	}
}

type transferRequest struct {
	FromAccountNumber string  `json:"fromAccountNumber" validate:"required,max=20"`
	Password          string  `json:"password" validate:"required"`
	ToAccountNumber   string  `json:"toAccountNumber" validate:"required,max=20"`
	Amount            int64   `json:"amount"`
	Memo              *string `json:"memo" validate:"omitempty,max=100"`
}

func (t transferRequest) toDomain() domain.TransferRequest {
	return domain.TransferRequest{
		FromAccountNumber: t.FromAccountNumber,
		Password:          t.Password,
		ToAccountNumber:   t.ToAccountNumber,
		Amount:            t.Amount,
		Memo:              t.Memo,
	}
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type validationErrorResponse struct {
	Error   string            `json:"error"`
	Details []validationError `json:"details"`
}

// Amounts are checked by the domain so that zero and negative values map to
// the same error as in the ledger itself.
func validateRequest(obj any) []validationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []validationError{{Message: err.Error(), Type: "invalid"}}
	}

	out := make([]validationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Value is too long"
	case "category":
		return "Unknown category"
	default:
		return "Invalid value"
	}
}

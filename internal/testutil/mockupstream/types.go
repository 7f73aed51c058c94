// Package mockupstream provides a demo backend whose payloads carry personal
// data, for exercising the masking proxy end to end.
package mockupstream

// UserDTO is a user record. Its mask tags drive the masked log rendering.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	INN       string `json:"inn" mask:"maskLength=8"`
	Num       string `json:"num" mask:"startIndex=4,length=3"`
	EpkID     string `json:"epkId" mask:"maskChar=#"`
	FirstName string `json:"firstName" mask:"maskChar=*,nameMaskLength=1"`
	LastName  string `json:"lastName" mask:"maskChars=*#X"`
}

// PaymentDTO is a payment record.
type PaymentDTO struct {
	PaymentID      string  `json:"paymentId"`
	Amount         float64 `json:"amount"`
	INN            string  `json:"inn" mask:"maskChars=*#,maskLength=10"`
	TransactionNum string  `json:"transactionNum" mask:"startIndex=3,length=4,maskChar=X"`
	EpkID          string  `json:"epkId" mask:""`
	PayerName      string  `json:"payerName" mask:"nameMaskLength=2,maskChar=."`
	PayerSurname   string  `json:"payerSurname" mask:"maskChar=•"`
}

// ErrorResponse is the error body of the mock upstream.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SampleUser returns the fixture user served by GET /api/test/user.
func SampleUser(id string) UserDTO {
	return UserDTO{
		ID:        id,
		Name:      "Иван",
		INN:       "1234567890123",
		Num:       "1234567890",
		EpkID:     "EPK123456",
		FirstName: "Иван",
		LastName:  "Петров",
	}
}

// SamplePayment returns the fixture payment served by GET /api/test/payment.
func SamplePayment(id string, amount float64) PaymentDTO {
	return PaymentDTO{
		PaymentID:      id,
		Amount:         amount,
		INN:            "1234567890123",
		TransactionNum: "1234567890",
		EpkID:          "EPK123456",
		PayerName:      "Иван",
		PayerSurname:   "Петров",
	}
}

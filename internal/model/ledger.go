package model

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

type Customer struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Mobile        string  `json:"mobile"`
	CreditBalance float64 `json:"credit_balance"`
}

// PaymentResult is the ledger state observed by the transaction that applied a payment.
type PaymentResult struct {
	NewBalance  float64 `json:"new_balance"`
	TotalCredit float64 `json:"total_credit"`
}

type Dashboard struct {
	Customers   []Customer `json:"customers"`
	TotalCredit float64    `json:"total_credit"`
}

// SumCredit returns the aggregate exposure of the given customers.
func SumCredit(customers []Customer) float64 {
	var total float64
	for _, c := range customers {
		total += c.CreditBalance
	}
	return total
}

package domain

// Customer is stored in the key-value store under customer_id. Optional
// attributes missing from storage read back as empty strings.
type Customer struct {
	ID        string `json:"customer_id" dynamodbav:"customer_id"`
	Name      string `json:"name" dynamodbav:"name"`
	Email     string `json:"email" dynamodbav:"email"`
	Phone     string `json:"phone" dynamodbav:"phone"`
	Address   string `json:"address" dynamodbav:"address"`
	CreatedAt string `json:"created_at" dynamodbav:"created_at"`
}

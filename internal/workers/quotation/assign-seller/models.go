package assignseller

// Output is the seller chosen for the quotation's process instance.
type Output struct {
	SellerID string `json:"sellerId"`
}

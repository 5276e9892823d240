package types

// Address is the shipping destination captured at checkout.
type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

package person

// NoID is stored when the provider has no identifier for a person.
const NoID = "Sem ID"

// Record is one dataset entry. Code is the search key and is assigned at
// build time, 1-based and contiguous across pages.
type Record struct {
	Code     int    `json:"code" yaml:"code"`
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	Cell     string `json:"cell" yaml:"cell"`
	Location string `json:"location" yaml:"location"`
	Age      int    `json:"age" yaml:"age"`
	Picture  string `json:"picture" yaml:"picture"`
}

// Dataset is ordered by Code, in insertion order.
type Dataset []Record

// Raw is the provider-native shape of a person. It carries no sequence code.
type Raw struct {
	ID struct {
		Name  string  `json:"name"`
		Value *string `json:"value"`
	} `json:"id"`
	Name struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Cell     string `json:"cell"`
	Location struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"location"`
	DOB struct {
		Age int `json:"age"`
	} `json:"dob"`
	Picture struct {
		Large string `json:"large"`
	} `json:"picture"`
}

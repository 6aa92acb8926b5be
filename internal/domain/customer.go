package domain

// Credentials is one section of the edge platform credential file.
type Credentials struct {
	Host         string
	ClientToken  string
	ClientSecret string
	AccessToken  string
}

// CustomerContext carries the resolved credentials for one dispatch. It
// is constructed per request and never retained beyond it.
type CustomerContext struct {
	Section          string
	Credentials      Credentials
	AccountSwitchKey string
}

// CredentialResolver resolves a customer section name to its context.
type CredentialResolver interface {
	// Resolve returns the context for section, or the default section
	// when section is empty. Unknown sections fail with
	// ErrCustomerNotFound.
	Resolve(section string) (CustomerContext, error)
	// Sections returns the configured section names in sorted order.
	Sections() []string
}

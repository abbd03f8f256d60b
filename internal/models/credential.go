package models

// DefaultLabel is the credential label used in single-key mode
const DefaultLabel = "default"

// Credential is one labelled secret
type Credential struct {
	Label  string `json:"label"`
	Secret string `json:"-"`
	Active bool   `json:"active"`
}

// CredentialInfo is the listing view of a credential; it never carries the secret
type CredentialInfo struct {
	Label  string `json:"label"`
	Active bool   `json:"active"`
	Masked string `json:"masked"`
}

// Mask hides all but the last four characters of a secret
func Mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// OrgInfo maps a discovered organization to the credential that can reach it
type OrgInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

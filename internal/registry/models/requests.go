package models

import (
	dErrors "nameledger/pkg/domain-errors"
)

// RegisterRequest is the body of POST /v1/records.
type RegisterRequest struct {
	Name      string `json:"name"`
	TLD       string `json:"tld"`
	TermYears int    `json:"term_years"`
	Metadata  string `json:"metadata"`
	Payment   Amount `json:"payment"`
}

// Validate checks request shape. TLD support and the term range are
// ledger rules enforced by the service.
func (r *RegisterRequest) Validate() error {
	if err := CheckLabel("name", r.Name); err != nil {
		return err
	}
	if err := CheckText("tld", r.TLD); err != nil {
		return err
	}
	return CheckText("metadata", r.Metadata)
}

type RenewRequest struct {
	TermYears int    `json:"term_years"`
	Payment   Amount `json:"payment"`
}

type TransferRequest struct {
	NewOwner string `json:"new_owner"`
}

type CreateSubdomainRequest struct {
	SubName  string `json:"sub_name"`
	Metadata string `json:"metadata"`
}

// Validate checks the label and metadata. The parent is checked by the
// service.
func (r *CreateSubdomainRequest) Validate() error {
	if err := CheckLabel("subdomain name", r.SubName); err != nil {
		return err
	}
	return CheckText("metadata", r.Metadata)
}

type AddTldRequest struct {
	TLD           string `json:"tld"`
	FeeMultiplier uint64 `json:"fee_multiplier"`
}

type UpdateTldRequest struct {
	FeeMultiplier uint64 `json:"fee_multiplier"`
}

type UpdateBaseFeeRequest struct {
	BaseFee Amount `json:"base_fee"`
}

// AvailabilityResponse answers GET /v1/availability/{tld}/{name}.
type AvailabilityResponse struct {
	Name      string `json:"name"`
	TLD       string `json:"tld"`
	Available bool   `json:"available"`
}

type QuoteResponse struct {
	Name      string `json:"name"`
	TLD       string `json:"tld"`
	TermYears int    `json:"term_years"`
	Fee       Amount `json:"fee"`
}

// ResolveResponse is the record plus its metadata side channel.
type ResolveResponse struct {
	Record *Record `json:"record"`
}

type AmountResponse struct {
	Amount Amount `json:"amount"`
}

type ListSubdomainsResponse struct {
	Subdomains []*SubRecord `json:"subdomains"`
}

type ListTldsResponse struct {
	Tlds []*TldEntry `json:"tlds"`
}

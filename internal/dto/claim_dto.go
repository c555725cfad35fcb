package dto

// SubmitClaimRequest carries every field any claim type accepts; the claim
// service enforces which subset is required per type.
type SubmitClaimRequest struct {
	ClaimType    string `json:"claim_type"`
	PolicyID     string `json:"policy_id"`
	IncidentDate string `json:"incident_date"`
	DamagedItems string `json:"damaged_items"`
	Description  string `json:"description"`
	ProofURL     string `json:"proof_url"`

	ShowingConfirmationNumber string `json:"showing_confirmation_number"`

	// agent_subscription claims only.
	AtFaultParty     string `json:"at_fault_party"`
	HomeownerName    string `json:"homeowner_name"`
	HomeownerPhone   string `json:"homeowner_phone"`
	HomeownerEmail   string `json:"homeowner_email"`
	HomeownerAddress string `json:"homeowner_address"`
	ShowingProofURL  string `json:"showing_proof_url"`
}

type DecideClaimRequest struct {
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
	AdminNote string `json:"admin_note"`
}

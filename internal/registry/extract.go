package registry

import (
	"fmt"
	"strings"

	"github.com/leadtrail/leadtrail/internal/lead"
)

type companyProfileResponse struct {
	CompanyName          string   `json:"company_name"`
	CompanyStatus        string   `json:"company_status"`
	Type                 string   `json:"type"`
	Jurisdiction         string   `json:"jurisdiction"`
	DateOfCreation       string   `json:"date_of_creation"`
	SICCodes             []string `json:"sic_codes"`
	HasInsolvencyHistory bool     `json:"has_insolvency_history"`
	HasCharges           bool     `json:"has_charges"`
	UndeliverableAddress bool     `json:"undeliverable_registered_office_address"`
	Accounts             struct {
		LastAccounts struct {
			MadeUpTo string `json:"made_up_to"`
		} `json:"last_accounts"`
		NextDue string `json:"next_due"`
	} `json:"accounts"`
	ConfirmationStatement struct {
		LastMadeUpTo string `json:"last_made_up_to"`
		NextDue      string `json:"next_due"`
	} `json:"confirmation_statement"`
}

type addressResponse struct {
	CareOf       string `json:"care_of"`
	Premises     string `json:"premises"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

type officersResponse struct {
	ActiveCount   int `json:"active_count"`
	TotalResults  int `json:"total_results"`
	ResignedCount int `json:"resigned_count"`
	Items         []struct {
		Name        string `json:"name"`
		OfficerRole string `json:"officer_role"`
		ResignedOn  string `json:"resigned_on"`
	} `json:"items"`
}

// keyOfficerRoles are the roles worth surfacing to an outreach user.
var keyOfficerRoles = map[string]bool{
	"ceo":       true,
	"director":  true,
	"secretary": true,
}

func extractProfile(p companyProfileResponse, a addressResponse, o officersResponse) (lead.RegistryProfile, error) {
	if p.CompanyName == "" {
		return lead.RegistryProfile{}, fmt.Errorf("profile response missing company_name")
	}
	return lead.RegistryProfile{
		CompanyName:          p.CompanyName,
		CompanyStatus:        orSentinel(p.CompanyStatus),
		CompanyType:          orSentinel(p.Type),
		Jurisdiction:         orSentinel(p.Jurisdiction),
		DateOfCreation:       orSentinel(p.DateOfCreation),
		SICCodes:             p.SICCodes,
		Address:              extractAddress(a),
		HasInsolvencyHistory: p.HasInsolvencyHistory,
		HasCharges:           p.HasCharges,
		UndeliverableAddress: p.UndeliverableAddress,
		LastAccountsDate:     orNotAvailable(p.Accounts.LastAccounts.MadeUpTo),
		NextAccountsDue:      orNotAvailable(p.Accounts.NextDue),
		ConfirmationLastMade: orNotAvailable(p.ConfirmationStatement.LastMadeUpTo),
		ConfirmationNextDue:  orNotAvailable(p.ConfirmationStatement.NextDue),
		ActiveOfficerCount:   o.ActiveCount,
		TotalOfficerCount:    o.TotalResults,
		ResignedOfficerCount: o.ResignedCount,
		KeyOfficers:          extractKeyOfficers(o),
	}, nil
}

func extractAddress(a addressResponse) lead.RegisteredAddress {
	return lead.RegisteredAddress{
		CareOf:       a.CareOf,
		PremisesName: a.Premises,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		Locality:     a.Locality,
		Region:       a.Region,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

// extractKeyOfficers formats up to five active ceo/director/secretary
// entries as "Name (Role)" joined by "; ".
func extractKeyOfficers(o officersResponse) string {
	var parts []string
	for _, item := range o.Items {
		if item.ResignedOn != "" || item.Name == "" {
			continue
		}
		if !keyOfficerRoles[strings.ToLower(item.OfficerRole)] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Name, item.OfficerRole))
		if len(parts) == maxKeyOfficers {
			break
		}
	}
	if len(parts) == 0 {
		return lead.NotFound
	}
	return strings.Join(parts, "; ")
}

func orSentinel(s string) string {
	if s == "" {
		return lead.NotFound
	}
	return s
}

func orNotAvailable(s string) string {
	if s == "" {
		return lead.NotAvailable
	}
	return s
}

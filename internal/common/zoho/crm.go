package zoho

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "leadbot/internal/common/http"
)

// CRMClient talks to the Zoho CRM v2 REST API.
type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *apphttp.Client
}

// Lead is the subset of the Zoho Leads module the bot fills in.
type Lead struct {
	ID          string `json:"id,omitempty"`
	LastName    string `json:"Last_Name"`
	FirstName   string `json:"First_Name,omitempty"`
	Phone       string `json:"Phone"`
	Email       string `json:"Email,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
	Area        string `json:"Area,omitempty"`
	Project     string `json:"Project,omitempty"`
	UnitType    string `json:"Unit_Type,omitempty"`
	Budget      int64  `json:"Budget,omitempty"`
	ExternalRef string `json:"External_Ref,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Action  string `json:"action"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

// NewCRMClient builds a client; baseURL defaults to the public v2 endpoint.
func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = "https://www.zohoapis.com/crm/v2"
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       apphttp.NewClient(timeout),
	}
}

// UpsertLead creates or updates a lead keyed on External_Ref so that a job
// redelivered by the broker never produces a second CRM record.
func (c *CRMClient) UpsertLead(ctx context.Context, lead *Lead) (string, error) {
	payload := map[string]interface{}{
		"data":                   []Lead{*lead},
		"duplicate_check_fields": []string{"External_Ref"},
	}

	var resp upsertResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads/upsert",
		map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}, payload, &resp)
	if err != nil {
		return "", fmt.Errorf("zoho upsert lead: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("zoho upsert lead: no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("zoho upsert lead: %s (%s)", resp.Data[0].Message, resp.Data[0].Code)
	}
	return resp.Data[0].Details.ID, nil
}

// TestConnection fetches the current org, which any valid token can read.
func (c *CRMClient) TestConnection(ctx context.Context) error {
	err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/org",
		map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}, nil, nil)
	if err != nil {
		return fmt.Errorf("zoho connection test: %w", err)
	}
	return nil
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"nameledger/e2e/steps/common"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	DELETE(path string) error
	ActAs(caller string)
	Caller() string
	StatusCode() int
	ResponseBody() []byte
	GetResponseField(field string) (any, error)
	Remember(key, value string)
	Recall(key string) (string, bool)
}

// RegisterSteps registers record and subdomain steps. Names are written as
// "label.tld"; the record id of each registered name is remembered under
// "id:<name>".
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	ctx.Step(`^"([^"]*)" is registered by "([^"]*)"$`, steps.givenRegistered)
	ctx.Step(`^I register "([^"]*)" for (\d+) years? paying (\d+)$`, steps.register)
	ctx.Step(`^I renew "([^"]*)" for (\d+) years? paying (\d+)$`, steps.renew)
	ctx.Step(`^I transfer "([^"]*)" to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^I resolve "([^"]*)"$`, steps.resolve)
	ctx.Step(`^I check availability of "([^"]*)"$`, steps.availability)
	ctx.Step(`^I request a quote for "([^"]*)" for (\d+) years?$`, steps.quote)

	ctx.Step(`^I create subdomain "([^"]*)" under "([^"]*)"$`, steps.createSubdomain)
	ctx.Step(`^I deactivate subdomain "([^"]*)" under "([^"]*)"$`, steps.deactivateSubdomain)
	ctx.Step(`^I list subdomains of "([^"]*)"$`, steps.listSubdomains)
	ctx.Step(`^the subdomains should be "([^"]*)"$`, steps.subdomainsShouldBe)
}

type ledgerSteps struct {
	tc TestContext
}

func splitName(full string) (string, string, error) {
	name, tld, ok := strings.Cut(full, ".")
	if !ok {
		return "", "", fmt.Errorf("%q is not of the form label.tld", full)
	}
	return name, tld, nil
}

func (s *ledgerSteps) recordID(full string) (string, error) {
	recordID, ok := s.tc.Recall("id:" + full)
	if !ok {
		return "", fmt.Errorf("no record id remembered for %q", full)
	}
	return recordID, nil
}

// givenRegistered registers full for owner at exactly the quoted fee.
func (s *ledgerSteps) givenRegistered(ctx context.Context, full, owner string) error {
	name, tld, err := splitName(full)
	if err != nil {
		return err
	}
	if err := s.tc.GET(fmt.Sprintf("/v1/quote/%s/%s?term=1", tld, name), nil); err != nil {
		return err
	}
	fee, err := s.tc.GetResponseField("fee")
	if err != nil {
		return err
	}

	previous := s.tc.Caller()
	s.tc.ActAs(owner)
	defer s.tc.ActAs(previous)
	if err := s.tc.POST("/v1/records", map[string]any{
		"name": name, "tld": tld, "term_years": 1, "payment": fee,
	}); err != nil {
		return err
	}
	if s.tc.StatusCode() != 201 {
		return fmt.Errorf("registering %s failed with %d: %s", full, s.tc.StatusCode(), s.tc.ResponseBody())
	}
	return s.rememberRecordID(full)
}

func (s *ledgerSteps) rememberRecordID(full string) error {
	recordID, err := s.tc.GetResponseField("record_id")
	if err != nil {
		return err
	}
	s.tc.Remember("id:"+full, common.Format(recordID))
	return nil
}

func (s *ledgerSteps) register(ctx context.Context, full string, years int, payment int64) error {
	name, tld, err := splitName(full)
	if err != nil {
		return err
	}
	if err := s.tc.POST("/v1/records", map[string]any{
		"name": name, "tld": tld, "term_years": years, "payment": payment,
	}); err != nil {
		return err
	}
	if s.tc.StatusCode() == 201 {
		return s.rememberRecordID(full)
	}
	return nil
}

func (s *ledgerSteps) renew(ctx context.Context, full string, years int, payment int64) error {
	recordID, err := s.recordID(full)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/records/"+recordID+"/renew", map[string]any{
		"term_years": years, "payment": payment,
	})
}

func (s *ledgerSteps) transfer(ctx context.Context, full, newOwner string) error {
	recordID, err := s.recordID(full)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/records/"+recordID+"/transfer", map[string]any{"new_owner": newOwner})
}

func (s *ledgerSteps) resolve(ctx context.Context, full string) error {
	name, tld, err := splitName(full)
	if err != nil {
		return err
	}
	return s.tc.GET(fmt.Sprintf("/v1/resolve/%s/%s", tld, name), nil)
}

func (s *ledgerSteps) availability(ctx context.Context, full string) error {
	name, tld, err := splitName(full)
	if err != nil {
		return err
	}
	return s.tc.GET(fmt.Sprintf("/v1/availability/%s/%s", tld, name), nil)
}

func (s *ledgerSteps) quote(ctx context.Context, full string, years int) error {
	name, tld, err := splitName(full)
	if err != nil {
		return err
	}
	return s.tc.GET(fmt.Sprintf("/v1/quote/%s/%s?term=%d", tld, name, years), nil)
}

func (s *ledgerSteps) createSubdomain(ctx context.Context, sub, parent string) error {
	recordID, err := s.recordID(parent)
	if err != nil {
		return err
	}
	return s.tc.POST("/v1/records/"+recordID+"/subdomains", map[string]any{"sub_name": sub})
}

func (s *ledgerSteps) deactivateSubdomain(ctx context.Context, sub, parent string) error {
	recordID, err := s.recordID(parent)
	if err != nil {
		return err
	}
	return s.tc.DELETE("/v1/records/" + recordID + "/subdomains/" + sub)
}

func (s *ledgerSteps) listSubdomains(ctx context.Context, parent string) error {
	recordID, err := s.recordID(parent)
	if err != nil {
		return err
	}
	return s.tc.GET("/v1/records/"+recordID+"/subdomains", nil)
}

// subdomainsShouldBe compares against "full_name=active|inactive" pairs in
// listing order.
func (s *ledgerSteps) subdomainsShouldBe(ctx context.Context, expected string) error {
	var resp struct {
		Subdomains []struct {
			FullName string `json:"full_name"`
			Active   bool   `json:"active"`
		} `json:"subdomains"`
	}
	if err := json.Unmarshal(s.tc.ResponseBody(), &resp); err != nil {
		return fmt.Errorf("decode subdomains: %w", err)
	}
	got := make([]string, 0, len(resp.Subdomains))
	for _, sub := range resp.Subdomains {
		state := "inactive"
		if sub.Active {
			state = "active"
		}
		got = append(got, sub.FullName+"="+state)
	}
	if strings.Join(got, ",") != expected {
		return fmt.Errorf("expected subdomains %q, got %q", expected, strings.Join(got, ","))
	}
	return nil
}

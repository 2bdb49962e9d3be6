package admin

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string, headers map[string]string) error
}

// RegisterSteps registers catalog and treasury steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I add TLD "([^"]*)" with multiplier (\d+)$`, steps.addTld)
	ctx.Step(`^I set the multiplier of "([^"]*)" to (\d+)$`, steps.updateMultiplier)
	ctx.Step(`^I set the base fee to (\d+)$`, steps.updateBaseFee)
	ctx.Step(`^I withdraw the balance$`, steps.withdraw)
	ctx.Step(`^I check the balance$`, steps.balance)
	ctx.Step(`^I list the TLDs$`, steps.listTlds)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) addTld(ctx context.Context, tld string, multiplier int64) error {
	return s.tc.POST("/v1/admin/tlds", map[string]any{"tld": tld, "fee_multiplier": multiplier})
}

func (s *adminSteps) updateMultiplier(ctx context.Context, tld string, multiplier int64) error {
	return s.tc.PUT("/v1/admin/tlds/"+tld, map[string]any{"fee_multiplier": multiplier})
}

func (s *adminSteps) updateBaseFee(ctx context.Context, fee int64) error {
	return s.tc.PUT("/v1/admin/base-fee", map[string]any{"base_fee": fee})
}

func (s *adminSteps) withdraw(ctx context.Context) error {
	return s.tc.POST("/v1/admin/withdraw", nil)
}

func (s *adminSteps) balance(ctx context.Context) error {
	return s.tc.GET("/v1/admin/balance", nil)
}

func (s *adminSteps) listTlds(ctx context.Context) error {
	return s.tc.GET("/v1/tlds", nil)
}

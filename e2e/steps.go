package e2e

import (
	"github.com/cucumber/godog"

	"nameledger/e2e/steps/admin"
	"nameledger/e2e/steps/common"
	"nameledger/e2e/steps/ledger"
)

// stepSets is ordered: common steps own the generic request and assertion
// phrases, so domain packages must not redefine them.
var stepSets = []func(*godog.ScenarioContext, *TestContext){
	func(sc *godog.ScenarioContext, tc *TestContext) { common.RegisterSteps(sc, tc) },
	func(sc *godog.ScenarioContext, tc *TestContext) { ledger.RegisterSteps(sc, tc) },
	func(sc *godog.ScenarioContext, tc *TestContext) { admin.RegisterSteps(sc, tc) },
}

// RegisterSteps binds every step package to the scenario.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	for _, register := range stepSets {
		register(sc, tc)
	}
}

package workflow

import (
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/searchvault/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so the framework knows their parameter and result types.
// Every activity is mocked via OnActivity.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Sweep{})
}

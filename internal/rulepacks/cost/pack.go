// Package cost provides the rule pack for plan cost optimisation.
// New returns every cost rule in evaluation order; callers register them
// into a RuleRegistry via a loop rather than listing each rule explicitly.
//
// Adding a new cost rule:
//  1. Write a constructor returning rules.Rule in this package, with a
//     Category and, when the saving can be priced, a Savings func.
//  2. Append it to the slice returned by New().
//  3. No other files need to change.
package cost

import "github.com/pankaj-dahiya-devops/shiftleft/internal/rules"

// New returns all cost rules in the order they should be evaluated.
func New() []rules.Rule {
	return []rules.Rule{
		ec2PreviousGenerationRule(),
		ec2OversizedRule(),
		ebsGP2LegacyRule(),
		ebsProvisionedIOPSRule(),
		rdsMultiAZNonProdRule(),
		rdsPreviousGenerationRule(),
		natGatewayNonProdRule(),
		eipUnattachedRule(),
		s3NoLifecycleRule(),
		missingCostTagsRule(),
	}
}

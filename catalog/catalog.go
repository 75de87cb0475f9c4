// Package catalog holds the static SOC 2 control definitions checked by
// the rule engines and embedded in the LLM analysis system prompt.
package catalog

import "github.com/c360studio/soc2scan/model"

// CC6_1 etc. are the control ids the rule engines and selector key off of.
const (
	CC6_1 = "CC6.1"
	CC6_7 = "CC6.7"
	CC7_2 = "CC7.2"
	A1_2  = "A1.2"
)

var controls = []model.Control{
	{
		ID:          CC6_1,
		Name:        "Logical Access Controls",
		Description: "The organization restricts logical access to facilities and systems containing or supporting sensitive information by validating user identity and authenticating access requests appropriately.",
		Requirement: "Implement authentication decorators and RBAC checks on sensitive operations.",
		Category:    "CC6 - Access Control",
	},
	{
		ID:          CC6_7,
		Name:        "Cryptography - Encryption and Secrets",
		Description: "The organization protects sensitive information during transmission and storage through encryption, preventing exposure of secrets and enforcing TLS for external communication.",
		Requirement: "No hardcoded secrets, move to environment variables, enforce HTTPS/TLS.",
		Category:    "CC6 - Access Control",
	},
	{
		ID:          CC7_2,
		Name:        "Monitoring and Logging",
		Description: "The organization monitors information systems and related assets for anomalies and logs security-relevant events including user activity, system access, and configuration changes.",
		Requirement: "Implement audit logging on sensitive operations, prevent logging of sensitive data.",
		Category:    "CC7 - System Monitoring",
	},
	{
		ID:          A1_2,
		Name:        "Resilience and Error Handling",
		Description: "The organization maintains system resilience through proper error handling, retry logic, and circuit breaker patterns on external dependencies.",
		Requirement: "Add try/catch blocks, implement retry logic with exponential backoff, use circuit breakers.",
		Category:    "A1 - Service Availability",
	},
}

// All returns the full SOC 2 control catalog.
func All() []model.Control {
	out := make([]model.Control, len(controls))
	copy(out, controls)
	return out
}

// Get returns the control with the given id, or false if unknown.
func Get(id string) (model.Control, bool) {
	for _, c := range controls {
		if c.ID == id {
			return c, true
		}
	}
	return model.Control{}, false
}

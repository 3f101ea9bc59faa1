// Relay routes LLM generation requests across a chain of providers.
//
// It owns provider selection, quota tracking, health checking, failure
// classification and recovery. Vendor connectors plug in as backends.
//
// Usage:
//
//	# Check a configuration file
//	relay validate --config relay.yaml
//
//	# Show the provider chain for a target
//	relay chain --target openai
//
//	# Classify a provider error and show the recovery strategy
//	relay classify "429 RESOURCE_EXHAUSTED" --status 429
//
//	# Probe every configured provider once
//	relay probe
//
//	# Run health checks, metrics and readiness endpoints
//	relay serve
package main

func main() {
	Execute()
}

// Command criteria renders search requests into SQL and serves the se_menus
// demo entity over HTTP with a cached search path.
//
// Usage:
//
//	criteria render [flags] [request.json]
//	criteria serve [--addr :8080]
//
// Configuration is read from criteria.yaml (auto-discovered up to the
// repository root, or given with --config) and CRITERIA_* environment
// variables.
package main

func main() {
	Execute()
}

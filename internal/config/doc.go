// Package config defines the configuration of the smoke test runner.
//
// # Configuration Structure
//
//	Configuration
//	├── Gateway        - Target gateway, timeouts and acting user
//	├── Report         - Output options (export file, colors, skipped checks)
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Gateway Configuration
//
//	┌──────────────┬─────────────────────────┬──────────────┬──────────────────────────────────┐
//	│ Field        │ Default                 │ Flag         │ Description                      │
//	├──────────────┼─────────────────────────┼──────────────┼──────────────────────────────────┤
//	│ APIURL       │ "http://localhost:8090" │ --api-url    │ Gateway base URL                 │
//	│ Timeout      │ 30                      │ --timeout    │ Per request timeout (seconds)    │
//	│ AgentTimeout │ 60                      │ --agent-...  │ AI agent query timeout (seconds) │
//	│ UserID       │ "smoke_test_user"       │ --user-id    │ user_id / X-User-ID value        │
//	│ AuthSecret   │ ""                      │ --auth-...   │ HS256 secret for bearer tokens   │
//	└──────────────┴─────────────────────────┴──────────────┴──────────────────────────────────┘
//
// # Report Configuration
//
//	┌─────────┬─────────┬────────────┬──────────────────────────────────────┐
//	│ Field   │ Default │ Flag       │ Description                          │
//	├─────────┼─────────┼────────────┼──────────────────────────────────────┤
//	│ Path    │ ""      │ --report   │ Export file (.json or .xlsx)         │
//	│ NoColor │ false   │ --no-color │ Plain console output                 │
//	│ Skip    │ []      │ --skip     │ Phase keys left out of the run       │
//	└─────────┴─────────┴────────────┴──────────────────────────────────────┘
//
// # Sources
//
// Load resolves every key from, in order: command line flag, the YAML file
// given with --config, then the struct tag defaults (creasty/defaults).
// Environment variables (SMOKE_API_URL, SMOKE_TIMEOUT, ...) are synced onto
// the flags by the command before Load runs.
//
//	gateway:
//	  apiUrl: https://gateway.staging.example.com
//	  timeout: 10
//	report:
//	  skip: [agent]
//	logLevel: info
//
// # Debug Logging
//
// DebugMap returns the resolved values with secrets masked:
//
//	zap.S().Debugw("configuration loaded", "config", cfg.DebugMap())
package config

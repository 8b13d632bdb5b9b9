// Package config loads workspace configuration from YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME}; unset
// variables expand to the empty string:
//
//	model:
//	  api_key: "${OPENAI_API_KEY}"
//
// # Example
//
//	workspace:
//	  id: "release-planning"
//	  max_concurrent_calls: 4
//	  seed:
//	    shared:
//	      topic: "pricing"
//
//	logging:
//	  level: "info"     # debug, info, warn, error
//	  format: "json"    # json, text
//	  backend: "slog"   # slog, zap
//
//	events:
//	  async: true
//	  buffer_size: 256
//	  log: true
//
//	metrics:
//	  enabled: true
//	  namespace: "meshstate"
//
//	model:
//	  provider: "openai"  # mock, openai, anthropic
//	  name: "gpt-4o-mini"
//	  timeout: "30s"
//
//	units:
//	  - name: "researcher"
//	    description: "Finds sources"
//	    prompt: "You research {{ .topic }}."
//
// Durations use time.ParseDuration syntax.
package config

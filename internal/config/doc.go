// Package config loads and validates hamco configuration.
//
// Configuration is a YAML file with ${VAR_NAME} environment variable
// expansion, so secrets can stay out of the file itself:
//
//	server:
//	  http_addr: ":8080"
//	  base_url: "https://hamco.example.com"
//	database:
//	  path: /var/lib/hamco/hamco.db
//	auth:
//	  jwt_secret: ${HAMCO_JWT_SECRET}
//	  issuer: hamco
//	  audience: hamco-clients
//	  token_lifetime: 24h
//	  key_cache_ttl: 10s
//	logging:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  path: /metrics
//	maintenance:
//	  schedule: "0 3 * * *"
//
// Validation is fail-fast: a missing or short jwt_secret, empty issuer
// or audience, or missing database path refuses startup instead of
// degrading to an insecure default.
package config

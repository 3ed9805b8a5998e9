// Package config loads the care-gateway YAML configuration.
//
// Configuration files support ${VAR_NAME} environment expansion and duration
// strings for timeouts:
//
//	server:
//	  http_addr: ":8080"
//	database:
//	  path: "data/care-gateway.db"
//	auth:
//	  jwt_secret: "${CARE_GATEWAY_JWT_SECRET}"
//	chat:
//	  send_buffer: 64
//	  read_timeout: 60s
//	  write_timeout: 10s
//	logging:
//	  level: info
//	  format: text
package config

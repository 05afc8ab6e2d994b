// Package config provides configuration parsing for the deeplink service.
//
// The configuration is stored in deeplink.json. Values missing from the file
// take their defaults, and any field can then be overridden by a DEEPLINK_*
// environment variable.
//
// # Configuration File Structure
//
//	{
//	  "links": {
//	    "scheme": "waqiti",
//	    "universalBase": "https://waqiti.com",
//	    "defaultDestination": "Home",
//	    "authDestination": "Login"
//	  },
//	  "routing": {
//	    "preferNewRouter": true,
//	    "legacyEnabled": true,
//	    "timeout": "10s"
//	  },
//	  "server": {
//	    "addr": ":8080",
//	    "hostPath": "/v1/host",
//	    "trustedProxies": ["10.0.0.0/8"]
//	  },
//	  "store": {"driver": "sqlite", "path": "deeplink.db", "ttl": "30m"},
//	  "records": {"source": "s3", "bucket": "waqiti-records", "prefix": "links/"},
//	  "auth": {"issuer": "https://auth.waqiti.com"},
//	  "metrics": {"enabled": true, "namespace": "deeplink"},
//	  "tracing": {"enabled": true, "endpoint": "http://otel:4318"}
//	}
//
// # Environment Overrides
//
// Variables are named DEEPLINK_<SECTION>_<FIELD>, for example
// DEEPLINK_SERVER_ADDR, DEEPLINK_ROUTING_TIMEOUT or DEEPLINK_AUTH_JWT_SECRET.
// Lists are comma separated.
//
// # Usage
//
//	cfg, err := config.Resolve("")
//	if err != nil {
//	    errors.Print(os.Stderr, err)
//	    os.Exit(1)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Addr)
package config

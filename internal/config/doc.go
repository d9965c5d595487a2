// Package config resolves the effective runtime configuration. A mandatory
// config.common.yaml is merged with an optional config.<env>.yaml, then
// environment variables and CLI flags are layered on top, with precedence:
// CLI flags > environment variables > environment file > common file >
// Defaults. The result is decoded into a strongly typed Config that callers
// receive explicitly.
package config

package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrMissingRPCURL is returned when no node URL is configured.
	ErrMissingRPCURL = errors.New("rpc url is required")

	// ErrInvalidDialTimeout is returned when dial timeout is <= 0.
	ErrInvalidDialTimeout = errors.New("invalid dial timeout: must be > 0")

	// ErrInvalidAddress is returned when a contract address is not 20-byte hex.
	ErrInvalidAddress = errors.New("invalid contract address")

	// ErrInvalidPollInterval is returned when poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be > 0")

	// ErrInvalidReceiptTimeout is returned when receipt timeout is negative.
	ErrInvalidReceiptTimeout = errors.New("invalid receipt timeout: must be >= 0")

	// ErrInvalidBackend is returned when the storage backend is not recognized.
	ErrInvalidBackend = errors.New("invalid storage backend: must be bolt or redis")

	// ErrMissingDBPath is returned when the bolt backend has no file.
	ErrMissingDBPath = errors.New("db path is required for bolt backend")

	// ErrMissingRedisAddr is returned when the redis backend has no address.
	ErrMissingRedisAddr = errors.New("redis addr is required for redis backend")

	// ErrInvalidDebounce is returned when watch debounce is <= 0.
	ErrInvalidDebounce = errors.New("invalid watch debounce: must be > 0")

	// ErrInvalidCircuitBreaker is returned when the circuit breaker threshold is <= 0.
	ErrInvalidCircuitBreaker = errors.New("invalid circuit breaker threshold: must be > 0")

	// ErrInvalidRefreshInterval is returned when monitor refresh is <= 0.
	ErrInvalidRefreshInterval = errors.New("invalid refresh interval: must be > 0")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be auto, table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidEnv is returned when an SSO_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)

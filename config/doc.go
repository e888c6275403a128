// Package config loads the runtime configuration of dagflow programs.
//
// Values come from a YAML file, a .env file and DAGFLOW_-prefixed environment
// variables, in increasing order of precedence:
//
//	cfg, err := config.Load("mapreduce", config.WithConfigFile("dagflow.yml"))
//
// DAGFLOW_EXECUTION_MAX_PARALLEL=4 overrides execution.max_parallel.
package config

// Package validation provides struct-tag validation for dagflow
// configuration and the identifier rule shared by nodes, inputs and outputs.
//
// # Struct Tag Validation
//
//	type ExecutionConfig struct {
//	    MaxParallel int `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Identifiers
//
// Node, input and output names must match NamePattern. The rule is also
// registered as the "dagname" struct tag:
//
//	err := validation.Name("node", "fan-out")
package validation

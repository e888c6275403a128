package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction errors, raised while a DAG or Task is being built.
const (
	// ErrCodeInvalidName indicates an identifier that does not match the naming rule.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"
	// ErrCodeInvalidReference indicates a reference to a node, input, output or param that does not exist.
	ErrCodeInvalidReference ErrorCode = "INVALID_REFERENCE"
	// ErrCodeInvalidDAG indicates a structurally invalid DAG (empty, duplicate exposure).
	ErrCodeInvalidDAG ErrorCode = "INVALID_DAG"
	// ErrCodeUnsupportedInput indicates an input type a node does not accept.
	ErrCodeUnsupportedInput ErrorCode = "UNSUPPORTED_INPUT"
	// ErrCodeSerializerMismatch indicates an input whose serializer differs from its source's.
	ErrCodeSerializerMismatch ErrorCode = "SERIALIZER_MISMATCH"
	// ErrCodeCyclicDependency indicates the node dependencies contain a cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodePartitioning indicates an illegal partitioning configuration.
	ErrCodePartitioning ErrorCode = "PARTITIONING_CONSTRAINT"
)

// Invocation errors, raised while a node is being executed.
const (
	// ErrCodeMissingParameter indicates required parameters were not supplied.
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	// ErrCodeInvalidType indicates a runtime value of the wrong kind (e.g. partitioning a non-sequence).
	ErrCodeInvalidType ErrorCode = "INVALID_TYPE"
	// ErrCodeOutputShape indicates a return value that does not match its output declaration.
	ErrCodeOutputShape ErrorCode = "OUTPUT_SHAPE"
	// ErrCodeSerialization indicates a value could not be serialized.
	ErrCodeSerialization ErrorCode = "SERIALIZATION"
	// ErrCodeDeserialization indicates a payload could not be deserialized.
	ErrCodeDeserialization ErrorCode = "DESERIALIZATION"
	// ErrCodeExecution indicates a task callable returned an error of its own.
	ErrCodeExecution ErrorCode = "EXECUTION_FAILED"
	// ErrCodeStorage indicates the output store could not read or write a payload.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates runtime configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

var constructionCodes = map[ErrorCode]bool{
	ErrCodeInvalidName:        true,
	ErrCodeInvalidReference:   true,
	ErrCodeInvalidDAG:         true,
	ErrCodeUnsupportedInput:   true,
	ErrCodeSerializerMismatch: true,
	ErrCodeCyclicDependency:   true,
	ErrCodePartitioning:       true,
}

// IsConstructionCode returns true if the code is raised while building a DAG
// rather than while invoking one.
func IsConstructionCode(code ErrorCode) bool {
	return constructionCodes[code]
}

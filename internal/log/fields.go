package log

// Field names shared across components, so log lines stay greppable.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldGenerated = "generated"
)

// Component names.
const (
	ComponentApp    = "app"
	ComponentAMQP   = "amqp"
	ComponentWorker = "worker"
)

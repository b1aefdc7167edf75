package log

import "sort"

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldMonthID      = "month_id"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldBalanceStart = "balance_start"
	FieldBalanceEnd   = "balance_end"
	FieldAmountCents  = "amount_cents"
	FieldEntity       = "entity"
	FieldEntityID     = "entity_id"
	FieldSheet        = "sheet"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentMonth     = "month"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentArchive   = "archive"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentCLI       = "cli"
)

// Operation names.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpClose    = "close"
	OpCarry    = "carryover"
	OpAppend   = "append"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds structured attributes for slog.
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds the error message; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMonth adds the stored month's identity.
func (f LogFields) WithMonth(monthID int64, year, month int) LogFields {
	f[FieldMonthID] = monthID
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithEntity identifies the record an operation touched.
func (f LogFields) WithEntity(entity string, id int64) LogFields {
	f[FieldEntity] = entity
	f[FieldEntityID] = id
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldUserAgent] = userAgent
	f[FieldClientIP] = clientIP
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into key/value pairs, sorted by key so log
// lines are stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}

package logkey

// Shared keys for structured log fields so the same attribute name is used
// everywhere a value is logged.
const (
	TraceID   = "TRACE ID"
	ERROR     = "ERROR"
	UserID    = "UserID"
	OrderID   = "OrderID"
	ProductID = "ProductID"
)

package gateway

// RPCRequest represents a JSON-RPC 2.0 request. The ID is kept untyped
// because clients send both string and numeric identifiers.
type RPCRequest struct {
	ID             interface{}            `json:"id"`
	Method         string                 `json:"method"`
	Params         map[string]interface{} `json:"params,omitempty"`
	JSONRPC        string                 `json:"jsonrpc"`
	IdempotencyKey string                 `json:"idempotencyKey,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *RPCRequest) IsNotification() bool {
	return r.ID == nil
}

// RPCResponse represents a JSON-RPC 2.0 response
type RPCResponse struct {
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	JSONRPC string      `json:"jsonrpc"`
}

// RPCError represents a JSON-RPC 2.0 error
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return e.Message
}

// RequestHandler is a function that handles RPC requests. Returning an
// *RPCError preserves its code on the wire; any other error maps to
// InternalError.
type RequestHandler func(params map[string]interface{}) (interface{}, error)

// RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

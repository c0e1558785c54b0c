package types

// ErrorResponse 错误响应. Details 携带底层原因，Fields 携带字段校验错误.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HealthResponse 健康检查结果，组件状态为 "ok" 或错误信息.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Breaker    string            `json:"breaker,omitempty"`
	Namespaces int               `json:"namespaces"`
}

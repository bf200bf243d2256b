package api

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse reports process health.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	OutboxPending int    `json:"outbox_pending"`
}

// LeadWebhookResponse acknowledges an accepted lead.
type LeadWebhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LeadID    string `json:"lead_id"`
	Score     int    `json:"score"`
	LeadChaud bool   `json:"lead_chaud"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

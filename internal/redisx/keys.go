package redisx

import "time"

const (
	// Last sync result per tenant: sync_status:{tenant_id} -> JSON result
	KeySyncStatus = "sync_status:%d"
)

var TTLSyncStatus = 24 * time.Hour

package appstash

import (
	"encoding/json"
	"time"
)

// AppRecord represents one remote app as last observed, persisted in
// the records partition.
type AppRecord struct {
	// Key is the composite primary key: scope and app id.
	Key string `json:"key"`

	// Scope identifies the tenant and user the record belongs to.
	Scope string `json:"scope"`

	// AppID is the remote identifier of the app. App ids are compared
	// byte-exact; only scopes are normalized.
	AppID string `json:"appId"`

	// Name is the display name of the app.
	Name string `json:"name"`

	// Payload is the previously loaded app data. It is stored and
	// returned uninterpreted; its schema belongs to the remote side.
	Payload json.RawMessage `json:"payload,omitempty"`

	// RemoteUpdatedAt is the remote-side update timestamp as reported.
	// It is compared for string equality only, never parsed.
	RemoteUpdatedAt string `json:"remoteUpdatedAt,omitempty"`

	// CachedAt is the instant the record was written locally.
	CachedAt time.Time `json:"cachedAt"`

	// SpaceID is an optional grouping identifier.
	SpaceID string `json:"spaceId,omitempty"`
}

// ScopeMetadata records the outcome of the last successful sync for a
// scope. At most one exists per scope and it is overwritten wholesale,
// never merged.
type ScopeMetadata struct {
	// Scope is the primary key.
	Scope string `json:"scope"`

	// LastSyncAt is the instant the last successful sync completed.
	LastSyncAt time.Time `json:"lastSyncAt"`

	// AppIDs lists every app id cached as of that sync.
	AppIDs []string `json:"appIds"`
}

// RemoteApp is one app as currently reported by the remote side. It is
// input to reconciliation and SetAppData, never persisted as-is.
type RemoteApp struct {
	// ID is the remote identifier of the app.
	ID string `json:"id"`

	// Name is the display name of the app.
	Name string `json:"name"`

	// SpaceID is an optional grouping identifier.
	SpaceID string `json:"spaceId,omitempty"`

	// UpdatedAt is the optional remote update timestamp. When absent,
	// the app is never considered changed by reconciliation.
	UpdatedAt string `json:"updatedAt,omitempty"`
}

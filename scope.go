package appstash

import "strings"

// keySep joins the parts of composite keys. Neither tenant URLs nor
// user ids nor app ids may contain it in a way that collides, since
// scopes always have exactly one separator before the user id.
const keySep = "|"

// ScopeKey builds the normalized tenant-user scope that partitions all
// cached state. It is deterministic: tenant URL variants differing only
// by scheme, trailing slash, or letter case collapse to the same scope
// for the same user id.
func ScopeKey(tenantURL, userID string) string {
	return normalizeTenantURL(tenantURL) + keySep + userID
}

// normalizeTenantURL strips the scheme and trailing slash and
// lowercases the remainder.
func normalizeTenantURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimSuffix(s, "/")
	return strings.ToLower(s)
}

// recordKey builds the composite primary key for an app record. App
// ids are used byte-exact; only the scope part is normalized.
func recordKey(scope, appID string) string {
	return scope + keySep + appID
}

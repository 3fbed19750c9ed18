// Package scope provides helpers to capture and restore the owner
// identity of a request from/to context.Context.
//
// When the forge framework is available, scope is carried via
// forge.WithScope / forge.ScopeFrom. These helpers bridge between the
// Job entity's OwnerID field and the context: the org identity wins
// when both org and app scope are present.
package scope

import (
	"context"

	"github.com/xraph/forge"
)

// CaptureOwner extracts the owner identifier from the context.
// Returns an empty string if no scope is present.
func CaptureOwner(ctx context.Context) string {
	s, ok := forge.ScopeFrom(ctx)
	if !ok {
		return ""
	}
	if org := s.OrgID(); org != "" {
		return org
	}
	return s.AppID()
}

// RestoreOwner attaches the owner identity to the context as an app
// scope. If ownerID is empty, the context is returned unchanged.
func RestoreOwner(ctx context.Context, ownerID string) context.Context {
	if ownerID == "" {
		return ctx
	}
	return forge.WithScope(ctx, forge.NewAppScope(ownerID))
}

package identity

import (
	"context"
	"log/slog"

	"github.com/salesrelay/salesrelay/internal/crm"
)

// Resolution methods, in chain order. A method is recorded on the Deal so
// delivery logs show how the address was obtained.
const (
	MethodFromSource       = "from_source"
	MethodDirectory        = "directory"
	MethodPlatformLookup   = "platform_lookup"
	MethodEmailFallback    = "email_fallback"
	MethodUnresolved       = "unresolved"
	MethodOperatorFallback = "operator_fallback"
)

// PlatformLookup is the messaging platform's email-to-id capability.
type PlatformLookup interface {
	LookupByEmail(ctx context.Context, email string) (string, error)
}

// DirectoryStore loads and saves the durable rep directory.
type DirectoryStore interface {
	Directory() (Directory, error)
	SaveDirectory(Directory) error
}

// Resolver walks the identity fallback chain for the primary channel.
type Resolver struct {
	store  DirectoryStore
	lookup PlatformLookup
}

func NewResolver(store DirectoryStore, lookup PlatformLookup) *Resolver {
	return &Resolver{store: store, lookup: lookup}
}

// Resolve returns a copy of the deal with messaging identity filled in. The
// chain short-circuits: direct id from the payload, then directory, then an
// async platform lookup (cached into the directory on success), then the raw
// email, then unresolved. Unresolved is a terminal business state, not a
// transient failure: callers must skip and log, never retry.
func (r *Resolver) Resolve(ctx context.Context, deal crm.Deal) crm.Deal {
	if deal.RepMessagingID != "" {
		deal.IdentityResolved = true
		deal.ResolutionMethod = MethodFromSource
		return deal
	}

	if deal.RepEmail == "" {
		deal.IdentityResolved = false
		deal.ResolutionMethod = MethodUnresolved
		return deal
	}

	if r.store != nil {
		dir, err := r.store.Directory()
		if err != nil {
			slog.Error("Rep directory read failed", "error", err)
		} else if rep, ok := dir.Find(deal.RepEmail); ok && rep.SlackID != "" {
			deal.RepMessagingID = rep.SlackID
			deal.IdentityResolved = true
			deal.ResolutionMethod = MethodDirectory
			return deal
		}
	}

	if r.lookup != nil {
		id, err := r.lookup.LookupByEmail(ctx, deal.RepEmail)
		if err != nil {
			// Lookup failures fall through to the email fallback.
			slog.Warn("Platform identity lookup failed", "email", deal.RepEmail, "error", err)
		} else if id != "" {
			r.cache(deal.RepEmail, id)
			deal.RepMessagingID = id
			deal.IdentityResolved = true
			deal.ResolutionMethod = MethodPlatformLookup
			return deal
		}
	}

	deal.RepMessagingID = deal.RepEmail
	deal.IdentityResolved = true
	deal.ResolutionMethod = MethodEmailFallback
	return deal
}

// cache upserts a successful platform lookup so future resolutions hit the
// directory instead of the platform API.
func (r *Resolver) cache(email, slackID string) {
	if r.store == nil {
		return
	}
	dir, err := r.store.Directory()
	if err != nil {
		slog.Error("Rep directory read failed during cache", "error", err)
		return
	}
	dir.Upsert(RepEntry{Email: email, SlackID: slackID, RegisteredVia: RegisteredPlatformLookup})
	if err := r.store.SaveDirectory(dir); err != nil {
		slog.Error("Rep directory cache write failed", "email", email, "error", err)
	}
}

// ResolveSecondary resolves the secondary-channel target for a rep's email:
// the directory's secondary-channel id when present, else the configured
// operator address.
func ResolveSecondary(dir Directory, email, operatorID string) (string, string) {
	if email != "" {
		if rep, ok := dir.Find(email); ok && rep.TelegramID != "" {
			return rep.TelegramID, MethodDirectory
		}
	}
	if operatorID != "" {
		return operatorID, MethodOperatorFallback
	}
	return "", MethodUnresolved
}

// Package identity resolves a canonical messaging address for a deal's
// owner through an ordered fallback chain, backed by a cached rep directory.
package identity

import (
	"strings"
	"time"
)

// Registration methods recorded on directory entries.
const (
	RegisteredManual         = "manual"
	RegisteredPlatformLookup = "platform_lookup"
	RegisteredSync           = "sync"
)

// RepEntry is one salesperson in the directory. Email is the natural key
// and all email comparisons are case-insensitive.
type RepEntry struct {
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	SlackID       string    `json:"slack_id,omitempty"`
	TelegramID    string    `json:"telegram_id,omitempty"`
	RegisteredAt  time.Time `json:"registered_at"`
	RegisteredVia string    `json:"registered_via,omitempty"`
}

// DirectoryMeta is the directory bookkeeping block.
type DirectoryMeta struct {
	UpdatedAt time.Time `json:"updated_at"`
	Total     int       `json:"total"`
}

// Directory is the durable rep registry.
type Directory struct {
	Reps []RepEntry    `json:"reps"`
	Meta DirectoryMeta `json:"_meta"`
}

// Find returns the entry for an email, matching case-insensitively.
func (d *Directory) Find(email string) (RepEntry, bool) {
	for _, rep := range d.Reps {
		if strings.EqualFold(rep.Email, email) {
			return rep, true
		}
	}
	return RepEntry{}, false
}

// Upsert merges an entry by email: new non-empty fields overwrite, old
// values survive where the incoming ones are blank.
func (d *Directory) Upsert(entry RepEntry) {
	for i, rep := range d.Reps {
		if !strings.EqualFold(rep.Email, entry.Email) {
			continue
		}
		if entry.Name != "" {
			rep.Name = entry.Name
		}
		if entry.SlackID != "" {
			rep.SlackID = entry.SlackID
		}
		if entry.TelegramID != "" {
			rep.TelegramID = entry.TelegramID
		}
		if entry.RegisteredVia != "" {
			rep.RegisteredVia = entry.RegisteredVia
		}
		d.Reps[i] = rep
		d.refresh()
		return
	}
	if entry.RegisteredAt.IsZero() {
		entry.RegisteredAt = time.Now()
	}
	d.Reps = append(d.Reps, entry)
	d.refresh()
}

// Remove deletes the entry for an email, reporting whether one existed.
func (d *Directory) Remove(email string) bool {
	for i, rep := range d.Reps {
		if strings.EqualFold(rep.Email, email) {
			d.Reps = append(d.Reps[:i], d.Reps[i+1:]...)
			d.refresh()
			return true
		}
	}
	return false
}

func (d *Directory) refresh() {
	d.Meta.UpdatedAt = time.Now()
	d.Meta.Total = len(d.Reps)
}

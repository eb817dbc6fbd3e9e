// Package conversation tracks multi-step operator input.
package conversation

import (
	"fmt"

	"zonarated-bot/internal/settings"
)

type State string

const (
	Idle                   State = "idle"
	AwaitingReferralCount  State = "awaiting_referral_count"
	AwaitingAffiliateLink  State = "awaiting_affiliate_link"
	AwaitingWelcome        State = "awaiting_welcome"
	AwaitingInviteExpiry   State = "awaiting_invite_expiry"
	AwaitingRedirectBase   State = "awaiting_redirect_base"
	AwaitingApproveID      State = "awaiting_approve_id"
	AwaitingLookupID       State = "awaiting_lookup_id"
	AwaitingBroadcast      State = "awaiting_broadcast"
	AwaitingMaintenanceEnd State = "awaiting_maintenance_end"
	AwaitingSchedule       State = "awaiting_schedule"
	AwaitingTopic          State = "awaiting_topic"
)

var settingKeys = map[State]string{
	AwaitingReferralCount: settings.RequiredReferrals,
	AwaitingAffiliateLink: settings.AffiliateLink,
	AwaitingWelcome:       settings.WelcomeMessage,
	AwaitingInviteExpiry:  settings.InviteExpirySeconds,
	AwaitingRedirectBase:  settings.RedirectBaseURL,
}

var prompts = map[State]string{
	AwaitingReferralCount:  "Kirim jumlah referral yang dibutuhkan (0-10):",
	AwaitingAffiliateLink:  "Kirim link affiliate baru (http/https), atau '-' untuk menghapus:",
	AwaitingWelcome:        "Kirim pesan welcome baru:",
	AwaitingInviteExpiry:   "Kirim durasi link undangan dalam detik (60-3600):",
	AwaitingRedirectBase:   "Kirim base URL redirect (http/https), atau '-' untuk menghapus:",
	AwaitingApproveID:      "Kirim User ID yang ingin di-approve:",
	AwaitingLookupID:       "Kirim User ID yang ingin dicari:",
	AwaitingBroadcast:      "Kirim pesan broadcast untuk semua user:",
	AwaitingMaintenanceEnd: "Kirim waktu selesai maintenance (RFC3339, contoh 2026-01-02T15:04:05Z) atau '-' tanpa batas:",
	AwaitingSchedule:       "Kirim jadwal dalam format:\nRFC3339 | judul | kategori | file_url [| affiliate_link]",
	AwaitingTopic:          "Kirim nama genre baru. Tambahkan ' | all' untuk menjadikannya topik semua video:",
}

func (s State) Valid() bool {
	if s == Idle {
		return true
	}
	_, ok := prompts[s]
	return ok
}

// SettingKey returns the settings key a simple edit flow writes, if any.
func (s State) SettingKey() (string, bool) {
	k, ok := settingKeys[s]
	return k, ok
}

func (s State) Prompt() string {
	return prompts[s]
}

type EventKind int

const (
	// Begin starts a flow; Event.Flow names it.
	Begin EventKind = iota
	// Accepted means the operator's input was applied.
	Accepted
	// Rejected means the input was invalid; the flow waits for another try.
	Rejected
	Cancel
)

type Event struct {
	Kind EventKind
	Flow State
}

// Next is the transition function. Starting a flow from inside another one
// replaces it.
func Next(s State, e Event) (State, error) {
	if !s.Valid() {
		return Idle, fmt.Errorf("unknown conversation state %q", s)
	}
	switch e.Kind {
	case Begin:
		if e.Flow == Idle || !e.Flow.Valid() {
			return s, fmt.Errorf("cannot begin flow %q", e.Flow)
		}
		return e.Flow, nil
	case Accepted:
		if s == Idle {
			return Idle, fmt.Errorf("no flow in progress")
		}
		return Idle, nil
	case Rejected:
		if s == Idle {
			return Idle, fmt.Errorf("no flow in progress")
		}
		return s, nil
	case Cancel:
		return Idle, nil
	default:
		return s, fmt.Errorf("unknown event kind %d", e.Kind)
	}
}

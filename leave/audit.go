package leave

import "time"

// =============================================================================
// AUDIT TRAIL - Bounded per-profile ring of structured change events
// =============================================================================

// MaxAuditEvents caps the per-profile audit trail. When the cap is exceeded
// the oldest events are evicted; truncation is an intentional lossy policy.
const MaxAuditEvents = 500

// TimestampFormat is the second-precision form used for event log entries
// and audit events.
const TimestampFormat = "2006-01-02 15:04:05"

// auditAppend records one structured event on the target profile.
// The caller is responsible for persisting the profile afterwards.
func auditAppend(p *Profile, at time.Time, actor Actor, action string, details map[string]any) {
	p.Audit = append(p.Audit, AuditEvent{
		Timestamp: at.Format(TimestampFormat),
		Actor:     actor,
		Action:    action,
		Details:   details,
	})
	if n := len(p.Audit); n > MaxAuditEvents {
		// Oldest-evicted; copy so the old backing array can be collected.
		kept := make([]AuditEvent, MaxAuditEvents)
		copy(kept, p.Audit[n-MaxAuditEvents:])
		p.Audit = kept
	}
}

// diffFields returns {field: {from, to}} for changed fields only.
// Used by profile-mutating admin actions to keep audit details lean.
func diffFields(before, after map[string]any) map[string]any {
	out := make(map[string]any)
	for k, b := range before {
		if a, ok := after[k]; ok && a != b {
			out[k] = map[string]any{"from": b, "to": a}
		}
	}
	return out
}

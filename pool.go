package quotagate

import "time"

// pool is the ordered credential set plus the rotation cursor. The cursor
// decides which credential an admission pass tries first; it only moves when
// a granted credential runs out of headroom on every tier, which spreads
// load instead of hammering credential #1 until its daily ceiling is hit.
type pool struct {
	creds  []*Credential
	cursor int
}

// candidate pairs a credential with one of its tiers.
type candidate struct {
	cred *Credential
	tier *Tier
}

// candidates returns the fallback order for one admission pass: the cursor
// credential's tiers in configured preference order, then the remaining
// credentials in pool order, wrapping around once. Dead credentials are
// skipped; a dead credential whose recovery period has elapsed comes back
// half-open.
func (p *pool) candidates(now time.Time, recovery time.Duration, tierHint string) []candidate {
	var out []candidate
	for i := 0; i < len(p.creds); i++ {
		cred := p.creds[(p.cursor+i)%len(p.creds)]
		if cred.health.observe(now, recovery) == HealthDead {
			continue
		}
		for _, tier := range orderTiers(cred.Tiers, tierHint) {
			out = append(out, candidate{cred: cred, tier: tier})
		}
	}
	return out
}

// orderTiers moves the hinted tier to the front, keeping the configured
// order otherwise.
func orderTiers(tiers []*Tier, hint string) []*Tier {
	if hint == "" {
		return tiers
	}
	var hinted *Tier
	for _, t := range tiers {
		if t.Name == hint {
			hinted = t
			break
		}
	}
	if hinted == nil {
		return tiers
	}
	out := make([]*Tier, 0, len(tiers))
	out = append(out, hinted)
	for _, t := range tiers {
		if t != hinted {
			out = append(out, t)
		}
	}
	return out
}

// advanceCursor moves the rotation cursor to the next credential.
func (p *pool) advanceCursor() {
	if len(p.creds) == 0 {
		return
	}
	p.cursor = (p.cursor + 1) % len(p.creds)
}

// byID returns the credential with the given ID, or nil.
func (p *pool) byID(id string) *Credential {
	for _, c := range p.creds {
		if c.ID == id {
			return c
		}
	}
	return nil
}

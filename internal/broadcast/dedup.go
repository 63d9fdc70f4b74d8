package broadcast

import (
	"github.com/rs/zerolog"
)

// Detector evaluates whether an incoming message duplicates one already
// stored. It is stateless apart from the immutable cross-RAT category map,
// so a single instance may serve concurrent dispatches.
type Detector struct {
	crossRAT map[int]int
	logger   zerolog.Logger
}

// NewDetector creates a detector using the given category equivalence map.
// Pass CrossRATMap() unless a test needs a custom mapping.
func NewDetector(crossRAT map[int]int, logger zerolog.Logger) *Detector {
	return &Detector{
		crossRAT: crossRAT,
		logger:   logger,
	}
}

// IsDuplicate reports whether candidate duplicates any message in recent.
// recent is the dedup window already filtered by receipt time; compareBody
// additionally requires exact body equality for same-slot matches.
//
// Messages from different slots come from different radios, where serial
// numbers and categories are not comparable; those pairs are duplicates only
// on exact body equality.
func (d *Detector) IsDuplicate(candidate *Message, recent []*Message, compareBody bool) bool {
	for _, m := range recent {
		if candidate.SlotIndex != m.SlotIndex {
			if candidate.Body == m.Body {
				d.logger.Debug().
					Int("serial", candidate.SerialNumber).
					Int("slot", candidate.SlotIndex).
					Int("other_slot", m.SlotIndex).
					Msg("duplicate message detected from different slot")
				return true
			}
			continue
		}

		if candidate.SerialNumber != m.SerialNumber {
			continue
		}

		// ETWS primary and secondary phases share serials but are distinct.
		if candidate.IsEtws() && m.IsEtws() && candidate.Etws.Primary != m.Etws.Primary {
			continue
		}

		if !d.categoriesEquivalent(candidate.ServiceCategory, m.ServiceCategory) {
			continue
		}

		if !compareBody || candidate.Body == m.Body {
			d.logger.Debug().
				Int("serial", candidate.SerialNumber).
				Int("category", candidate.ServiceCategory).
				Msg("duplicate message detected")
			return true
		}
	}
	return false
}

// categoriesEquivalent reports whether two service categories denote the same
// alert class, consulting the cross-RAT map in both directions.
func (d *Detector) categoriesEquivalent(a, b int) bool {
	if a == b {
		return true
	}
	if mapped, ok := d.crossRAT[a]; ok && mapped == b {
		return true
	}
	if mapped, ok := d.crossRAT[b]; ok && mapped == a {
		return true
	}
	return false
}

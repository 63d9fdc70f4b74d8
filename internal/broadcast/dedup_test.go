package broadcast

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestDetector() *Detector {
	return NewDetector(CrossRATMap(), zerolog.Nop())
}

func makeMessage(slot, serial, category int, body string) *Message {
	return &Message{
		SlotIndex:       slot,
		SerialNumber:    serial,
		ServiceCategory: category,
		Body:            body,
		ReceivedAt:      time.Now(),
	}
}

func TestDetector_IsDuplicate(t *testing.T) {
	detector := newTestDetector()

	tests := []struct {
		name        string
		candidate   *Message
		stored      *Message
		compareBody bool
		want        bool
	}{
		{
			name:      "same slot serial and category",
			candidate: makeMessage(0, 1234, GsmAlertExtremeImmediateObserved, "flood warning"),
			stored:    makeMessage(0, 1234, GsmAlertExtremeImmediateObserved, "flood warning"),
			want:      true,
		},
		{
			name:      "serial mismatch",
			candidate: makeMessage(0, 1234, GsmAlertExtremeImmediateObserved, "flood warning"),
			stored:    makeMessage(0, 1235, GsmAlertExtremeImmediateObserved, "flood warning"),
			want:      false,
		},
		{
			name:      "category mismatch without cross map entry",
			candidate: makeMessage(0, 1234, GsmAlertExtremeImmediateObserved, "flood warning"),
			stored:    makeMessage(0, 1234, GsmAlertMonthlyTest, "flood warning"),
			want:      false,
		},
		{
			name:      "cross technology equivalent categories",
			candidate: makeMessage(0, 1234, GsmAlertPresidential, "national alert"),
			stored:    makeMessage(0, 1234, CdmaCategoryPresidential, "national alert"),
			want:      true,
		},
		{
			name:      "cross technology equivalence is symmetric",
			candidate: makeMessage(0, 1234, CdmaCategorySevereThreat, "storm warning"),
			stored:    makeMessage(0, 1234, GsmAlertSevereImmediateLikely, "storm warning"),
			want:      true,
		},
		{
			name:      "different slot identical body",
			candidate: makeMessage(0, 1234, GsmAlertPresidential, "same text"),
			stored:    makeMessage(1, 9999, CdmaCategoryTestMessage, "same text"),
			want:      true,
		},
		{
			name:      "different slot different body",
			candidate: makeMessage(0, 1234, GsmAlertPresidential, "text a"),
			stored:    makeMessage(1, 1234, GsmAlertPresidential, "text b"),
			want:      false,
		},
		{
			name:        "body comparison enabled with differing bodies",
			candidate:   makeMessage(0, 1234, GsmAlertPresidential, "text a"),
			stored:      makeMessage(0, 1234, GsmAlertPresidential, "text b"),
			compareBody: true,
			want:        false,
		},
		{
			name:        "body comparison enabled with equal bodies",
			candidate:   makeMessage(0, 1234, GsmAlertPresidential, "text a"),
			stored:      makeMessage(0, 1234, GsmAlertPresidential, "text a"),
			compareBody: true,
			want:        true,
		},
		{
			name:      "body ignored when comparison disabled",
			candidate: makeMessage(0, 1234, GsmAlertPresidential, "text a"),
			stored:    makeMessage(0, 1234, GsmAlertPresidential, "text b"),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.IsDuplicate(tt.candidate, []*Message{tt.stored}, tt.compareBody)
			if got != tt.want {
				t.Errorf("IsDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_IsDuplicate_EtwsPhases(t *testing.T) {
	detector := newTestDetector()

	primary := makeMessage(0, 5000, GsmAlertPresidential, "earthquake")
	primary.Etws = &EtwsInfo{Primary: true}

	secondary := makeMessage(0, 5000, GsmAlertPresidential, "earthquake")
	secondary.Etws = &EtwsInfo{Primary: false}

	if detector.IsDuplicate(primary, []*Message{secondary}, false) {
		t.Error("expected primary vs secondary ETWS to not be a duplicate")
	}

	samePhase := makeMessage(0, 5000, GsmAlertPresidential, "earthquake")
	samePhase.Etws = &EtwsInfo{Primary: true}
	if !detector.IsDuplicate(primary, []*Message{samePhase}, false) {
		t.Error("expected matching ETWS phases to be a duplicate")
	}
}

func TestDetector_IsDuplicate_ScansWholeWindow(t *testing.T) {
	detector := newTestDetector()

	candidate := makeMessage(0, 1234, GsmAlertPresidential, "alert")
	recent := []*Message{
		makeMessage(0, 1, GsmAlertPresidential, "other"),
		makeMessage(0, 2, GsmAlertMonthlyTest, "other"),
		makeMessage(0, 1234, GsmAlertPresidential, "alert"),
	}

	if !detector.IsDuplicate(candidate, recent, true) {
		t.Error("expected match against a later window entry")
	}

	if detector.IsDuplicate(candidate, recent[:2], true) {
		t.Error("expected no match when window lacks the duplicate")
	}

	if detector.IsDuplicate(candidate, nil, true) {
		t.Error("expected empty window to never match")
	}
}

func TestMessage_NeedsGeoFence(t *testing.T) {
	withArea := makeMessage(0, 1, GsmAlertPresidential, "x")
	withArea.Area = testArea()
	withArea.MaxWaitSec = 15
	if !withArea.NeedsGeoFence() {
		t.Error("expected area plus wait budget to require geofencing")
	}

	unsetWait := makeMessage(0, 1, GsmAlertPresidential, "x")
	unsetWait.Area = testArea()
	unsetWait.MaxWaitSec = MaxWaitNotSet
	if !unsetWait.NeedsGeoFence() {
		t.Error("expected unset wait budget to fall back to the default and geofence")
	}

	noArea := makeMessage(0, 1, GsmAlertPresidential, "x")
	noArea.MaxWaitSec = 15
	if noArea.NeedsGeoFence() {
		t.Error("expected empty area to skip geofencing")
	}

	zeroWait := makeMessage(0, 1, GsmAlertPresidential, "x")
	zeroWait.Area = testArea()
	if zeroWait.NeedsGeoFence() {
		t.Error("expected zero wait budget to skip geofencing")
	}
}

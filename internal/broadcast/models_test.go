package broadcast

import (
	"testing"

	"github.com/alertgrid/alertgrid/pkg/geo"
)

func testArea() geo.Area {
	return geo.Area{geo.Circle{Center: geo.Point{Lat: 52.37, Lng: 4.9}, Radius: 1000}}
}

func TestMessage_IsEtws(t *testing.T) {
	plain := &Message{}
	if plain.IsEtws() {
		t.Error("expected message without ETWS info to not be ETWS")
	}

	etws := &Message{Etws: &EtwsInfo{Primary: true}}
	if !etws.IsEtws() {
		t.Error("expected message with ETWS info to be ETWS")
	}
}

func TestCrossRATMap_Immutable(t *testing.T) {
	a := CrossRATMap()
	b := CrossRATMap()

	a[GsmAlertPresidential] = 0
	if b[GsmAlertPresidential] != CdmaCategoryPresidential {
		t.Error("expected CrossRATMap to return an independent map per call")
	}
}

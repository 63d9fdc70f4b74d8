package geo

import (
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		area Area
		want string
	}{
		{
			name: "single circle",
			area: Area{Circle{Center: Point{Lat: 52.5, Lng: 4.25}, Radius: 1500}},
			want: "circle|52.5,4.25|1500",
		},
		{
			name: "single polygon",
			area: Area{Polygon{Vertices: []Point{
				{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10}, {Lat: 10, Lng: 10},
			}}},
			want: "polygon|0,0|0,10|10,10",
		},
		{
			name: "mixed list keeps order",
			area: Area{
				Circle{Center: Point{Lat: 1.5, Lng: -2.5}, Radius: 30},
				Polygon{Vertices: []Point{{Lat: 3, Lng: 4}, {Lat: 5, Lng: 6}, {Lat: 7, Lng: 8}}},
			},
			want: "circle|1.5,-2.5|30;polygon|3,4|5,6|7,8",
		},
		{
			name: "empty area",
			area: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.area); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeGeometry struct{}

func (fakeGeometry) Contains(Point) bool { return false }

func TestEncode_DropsUnknownVariant(t *testing.T) {
	area := Area{
		fakeGeometry{},
		Circle{Center: Point{Lat: 1, Lng: 2}, Radius: 3},
	}
	if got := Encode(area); got != "circle|1,2|3" {
		t.Errorf("Encode() = %q, want unknown variant dropped", got)
	}
}

func TestDecode(t *testing.T) {
	area, err := Decode("circle|13.56,-55.447|2500;polygon|0,0|0,10|10,10|10,0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(area) != 2 {
		t.Fatalf("expected 2 geometries, got %d", len(area))
	}

	circle, ok := area[0].(Circle)
	if !ok {
		t.Fatalf("expected first geometry to be a circle, got %T", area[0])
	}
	if circle.Center.Lat != 13.56 || circle.Center.Lng != -55.447 || circle.Radius != 2500 {
		t.Errorf("unexpected circle %+v", circle)
	}

	polygon, ok := area[1].(Polygon)
	if !ok {
		t.Fatalf("expected second geometry to be a polygon, got %T", area[1])
	}
	if len(polygon.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(polygon.Vertices))
	}
}

func TestDecode_WhitespaceTolerant(t *testing.T) {
	area, err := Decode("circle| 1.5 , 2.5 | 100 ; polygon|0,0| 0,1 |1,1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(area) != 2 {
		t.Fatalf("expected 2 geometries, got %d", len(area))
	}
	if c := area[0].(Circle); c.Center.Lat != 1.5 || c.Center.Lng != 2.5 || c.Radius != 100 {
		t.Errorf("unexpected circle %+v", c)
	}
}

func TestDecode_SkipsMalformedGeometry(t *testing.T) {
	area, err := Decode("triangle|0,0|1,1|2,2;circle|5,5|10")
	if err == nil {
		t.Fatal("expected a parse error for the unknown tag")
	}
	if len(area) != 1 {
		t.Fatalf("expected the valid geometry to survive, got %d", len(area))
	}
	if _, ok := area[0].(Circle); !ok {
		t.Errorf("expected surviving geometry to be a circle, got %T", area[0])
	}
}

func TestDecode_Empty(t *testing.T) {
	area, err := Decode("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if area != nil {
		t.Errorf("expected nil area, got %v", area)
	}
}

func TestRoundTrip(t *testing.T) {
	original := Area{
		Circle{Center: Point{Lat: 52.3676131, Lng: 4.9041389}, Radius: 1234.5678901},
		Polygon{Vertices: []Point{
			{Lat: 51.9244201, Lng: 4.4777325},
			{Lat: 52.0705088, Lng: 4.3006999},
			{Lat: 52.0894444, Lng: 5.1102222},
		}},
		Circle{Center: Point{Lat: -33.8688197, Lng: 151.2092955}, Radius: 0.0000001},
	}

	decoded, err := Decode(Encode(original))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n  in:  %+v\n  out: %+v", original, decoded)
	}
}

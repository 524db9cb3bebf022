package pathjson_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tb8/tb8/pkg/pathjson"
)

type arrival struct {
	ID          string    `json:"id"`
	StationName string    `json:"stationName"`
	TimeToStop  int       `json:"timeToStation"`
	Expected    time.Time `json:"expectedArrival"`
	Towards     *string   `json:"towards"`
}

type envelope struct {
	Results []arrival         `json:"results"`
	Tags    map[string]int    `json:"tags"`
	Pair    [2]int            `json:"pair"`
	Extra   map[string]string `json:"extra"`
}

func TestUnmarshal_Success(t *testing.T) {
	data := `{
		"$type": "ignored",
		"results": [
			{"id": "a", "stationName": "Oxford Circus", "timeToStation": 60, "expectedArrival": "2024-01-15T12:00:00Z", "towards": "Brixton"},
			{"ID": "b", "stationname": "Green Park", "timeToStation": 120, "towards": null}
		],
		"tags": {"x": 1},
		"pair": [1, 2, 3]
	}`

	var got envelope
	if err := pathjson.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(got.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(got.Results))
	}
	if got.Results[0].StationName != "Oxford Circus" {
		t.Errorf("Results[0].StationName = %s, want Oxford Circus", got.Results[0].StationName)
	}
	if got.Results[0].Towards == nil || *got.Results[0].Towards != "Brixton" {
		t.Errorf("Results[0].Towards = %v, want Brixton", got.Results[0].Towards)
	}
	if !got.Results[0].Expected.Equal(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Results[0].Expected = %v", got.Results[0].Expected)
	}
	if got.Results[1].ID != "b" || got.Results[1].StationName != "Green Park" {
		t.Errorf("case-insensitive match failed: %+v", got.Results[1])
	}
	if got.Results[1].Towards != nil {
		t.Errorf("Results[1].Towards = %v, want nil", *got.Results[1].Towards)
	}
	if got.Tags["x"] != 1 {
		t.Errorf("Tags[x] = %d, want 1", got.Tags["x"])
	}
	if got.Pair != [2]int{1, 2} {
		t.Errorf("Pair = %v, want [1 2]", got.Pair)
	}
	if got.Extra != nil {
		t.Errorf("Extra = %v, want nil", got.Extra)
	}
}

func TestUnmarshal_ErrorPath(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		target   func() any
		wantPath string
		wantMsg  string
	}{
		{
			name:     "third element has numeric station name",
			data:     `{"results":[{"stationName":"a"},{"stationName":"b"},{"stationName":42}]}`,
			target:   func() any { return &envelope{} },
			wantPath: "results.[2].stationName",
			wantMsg:  "number",
		},
		{
			name:     "root array element",
			data:     `[{"id":"a"},{"id":true}]`,
			target:   func() any { return &[]arrival{} },
			wantPath: "[1].id",
			wantMsg:  "bool",
		},
		{
			name:     "object where array expected",
			data:     `{"results":{"id":"a"}}`,
			target:   func() any { return &envelope{} },
			wantPath: "results",
			wantMsg:  "cannot unmarshal object",
		},
		{
			name:     "root mismatch",
			data:     `"just a string"`,
			target:   func() any { return &[]arrival{} },
			wantPath: ".",
			wantMsg:  "cannot unmarshal string",
		},
		{
			name:     "map value",
			data:     `{"tags":{"x":1,"y":"two"}}`,
			target:   func() any { return &envelope{} },
			wantPath: "tags.y",
			wantMsg:  "string",
		},
		{
			name:     "bad timestamp",
			data:     `{"results":[{"expectedArrival":"tomorrow"}]}`,
			target:   func() any { return &envelope{} },
			wantPath: "results.[0].expectedArrival",
			wantMsg:  "parsing time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pathjson.Unmarshal([]byte(tt.data), tt.target())
			var pe *pathjson.Error
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *pathjson.Error", err)
			}
			if pe.Path != tt.wantPath {
				t.Errorf("Path = %s, want %s", pe.Path, tt.wantPath)
			}
			if !strings.Contains(pe.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", pe.Msg, tt.wantMsg)
			}
		})
	}
}

func TestUnmarshal_FirstErrorWins(t *testing.T) {
	data := `[{"id":1},{"id":2}]`
	var got []arrival
	err := pathjson.Unmarshal([]byte(data), &got)

	var pe *pathjson.Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *pathjson.Error", err)
	}
	if pe.Path != "[0].id" {
		t.Errorf("Path = %s, want [0].id", pe.Path)
	}
}

func TestUnmarshal_SyntaxError(t *testing.T) {
	for _, data := range []string{``, `{"results": [`, `not json`} {
		var got envelope
		err := pathjson.Unmarshal([]byte(data), &got)
		var pe *pathjson.Error
		if !errors.As(err, &pe) {
			t.Fatalf("Unmarshal(%q) error = %v, want *pathjson.Error", data, err)
		}
		if pe.Path != "." {
			t.Errorf("Unmarshal(%q) Path = %s, want .", data, pe.Path)
		}
	}
}

func TestUnmarshal_InvalidTarget(t *testing.T) {
	var got envelope
	if err := pathjson.Unmarshal([]byte(`{}`), got); err == nil {
		t.Error("expected error for non-pointer target")
	}
	if err := pathjson.Unmarshal([]byte(`{}`), (*envelope)(nil)); err == nil {
		t.Error("expected error for nil pointer target")
	}
}

type base struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type derived struct {
	base
	Name string `json:"name"`
}

func TestUnmarshal_Embedded(t *testing.T) {
	var got derived
	if err := pathjson.Unmarshal([]byte(`{"id":"x","name":"outer"}`), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != "x" {
		t.Errorf("ID = %s, want x", got.ID)
	}
	if got.Name != "outer" {
		t.Errorf("Name = %s, want outer", got.Name)
	}
	if got.base.Name != "" {
		t.Errorf("base.Name = %s, want empty", got.base.Name)
	}
}

func TestPath(t *testing.T) {
	p := pathjson.Path(nil).Key("results").Index(2).Key("stationName")
	if p.String() != "results.[2].stationName" {
		t.Errorf("String() = %s", p.String())
	}
	if pathjson.Path(nil).String() != "." {
		t.Errorf("root String() = %s, want .", pathjson.Path(nil).String())
	}

	segs := pathjson.ParsePath("results.[2].stationName")
	if len(segs) != 3 {
		t.Fatalf("ParsePath() = %v", segs)
	}
	if n, ok := pathjson.IndexOf(segs[1]); !ok || n != 2 {
		t.Errorf("IndexOf(%s) = %d, %v", segs[1], n, ok)
	}
	if _, ok := pathjson.IndexOf("stationName"); ok {
		t.Error("IndexOf(stationName) should fail")
	}
	if len(pathjson.ParsePath(".")) != 0 {
		t.Error("ParsePath(.) should be empty")
	}
}

func TestPath_NoAliasing(t *testing.T) {
	base := make(pathjson.Path, 1, 4)
	base[0] = "results"
	a := base.Index(0)
	b := base.Index(1)
	if a.String() != "results.[0]" || b.String() != "results.[1]" {
		t.Errorf("a = %s, b = %s", a, b)
	}
}

func TestUnmarshal_IntegerList(t *testing.T) {
	var got struct {
		Results []int `json:"results"`
	}
	err := pathjson.Unmarshal([]byte(`{"results":[1,2,"x"]}`), &got)

	var pe *pathjson.Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *pathjson.Error", err)
	}
	if pe.Path != "results.[2]" {
		t.Errorf("Path = %s, want results.[2]", pe.Path)
	}
}

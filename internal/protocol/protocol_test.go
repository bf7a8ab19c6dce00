package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

func TestEncode(t *testing.T) {
	tc := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "empty body",
			msg:  &ReloadTracks{},
			want: `{"type":"reload-tracks"}`,
		},
		{
			name: "heartbeat",
			msg:  &Heartbeat{Timestamp: 1700000000000},
			want: `{"type":"heartbeat","timestamp":1700000000000}`,
		},
		{
			name: "correlated",
			msg:  &SetCollection{Correlation: Correlation{ID: 7}, Path: "/tmp/a.db"},
			want: `{"type":"set-collection","id":7,"path":"/tmp/a.db"}`,
		},
		{
			name: "collection info push omits id",
			msg:  &CollectionInfo{Collection: &models.Collection{Path: "a.db", Size: 3}},
			want: `{"type":"collection-info","collection":{"path":"a.db","size":3},"error_message":null,"path_completions":null}`,
		},
		{
			name: "get rows without models",
			msg:  &GetRows{Correlation: Correlation{ID: 1}, StartRow: 0, EndRow: 100},
			want: `{"type":"get-rows","id":1,"startRow":0,"endRow":100}`,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		msgs, err := Decode([]byte(`{"type":"search","query":"kadosh","query_id":3,"limit":10,"kind":"by-artist"}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		s, ok := msgs[0].(*Search)
		if !ok {
			t.Fatalf("expected *Search, got %T", msgs[0])
		}
		if s.Query != "kadosh" || s.QueryID != 3 || s.Kind != KindByArtist {
			t.Errorf("unexpected search %+v", s)
		}
	})

	t.Run("batch", func(t *testing.T) {
		batch, err := EncodeBatch([]Message{
			&BackendInfo{Version: "1.0.0"},
			&DefaultCollection{Collection: models.Collection{Path: "/home/stereo.db", Size: 12}},
			&Rows{Correlation: Correlation{ID: 4}, Rows: []models.Track{{YTID: "a", Title: "t", Artists: models.Artists{"x"}}}, LastRow: models.Ptr(1)},
		})
		if err != nil {
			t.Fatalf("EncodeBatch() error = %v", err)
		}
		if !strings.HasPrefix(string(batch), "[") {
			t.Fatalf("batch is not an array: %s", batch)
		}

		msgs, err := Decode(batch)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		rows := msgs[2].(*Rows)
		if id, ok := ReplyID(rows); !ok || id != 4 {
			t.Errorf("ReplyID() = %d, %v", id, ok)
		}
		if *rows.LastRow != 1 || rows.Rows[0].YTID != "a" {
			t.Errorf("unexpected rows %+v", rows)
		}
	})

	t.Run("filter model", func(t *testing.T) {
		raw := `{"type":"get-rows","id":2,"startRow":0,"endRow":50,
			"sortModel":[{"colId":"release_date","sort":"desc"}],
			"filterModel":{
				"title":{"filterType":"text","type":"contains","filter":"love"},
				"bpm":{"filterType":"number","operator":"OR","conditions":[
					{"filterType":"number","type":"lessThan","filter":100},
					{"filterType":"number","type":"greaterThan","filter":130}]}}}`
		msgs, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		gr := msgs[0].(*GetRows)
		if !gr.SortModel[0].Desc() {
			t.Error("expected descending sort")
		}
		if gr.FilterModel["title"].Combined() {
			t.Error("title filter should be simple")
		}
		bpm := gr.FilterModel["bpm"]
		if !bpm.Combined() || len(bpm.Conditions) != 2 || bpm.Operator != "OR" {
			t.Errorf("unexpected bpm filter %+v", bpm)
		}
	})

	t.Run("partial batch", func(t *testing.T) {
		msgs, err := Decode([]byte(`[{"type":"reload-tracks"},{"type":"bogus"},{"type":"play-id","yt_id":"x"}]`))
		if !errors.Is(err, shared.ErrUnknownMessage) {
			t.Errorf("expected ErrUnknownMessage, got %v", err)
		}
		if len(msgs) != 2 {
			t.Errorf("expected 2 decoded messages, got %d", len(msgs))
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, in := range []string{``, `{`, `[1,2`, `{"type":"heartbeat","timestamp":"soon"}`} {
			if _, err := Decode([]byte(in)); !errors.Is(err, shared.ErrMalformed) {
				t.Errorf("Decode(%q) expected ErrMalformed, got %v", in, err)
			}
		}
	})
}

func TestRegistry(t *testing.T) {
	for typ, newMsg := range registry {
		m := newMsg()
		if m.Type() != typ {
			t.Errorf("registry[%q] builds %q", typ, m.Type())
		}

		data, err := Encode(m)
		if err != nil {
			t.Errorf("Encode(%s) error = %v", typ, err)
			continue
		}
		var head map[string]json.RawMessage
		if err := json.Unmarshal(data, &head); err != nil {
			t.Errorf("%s encodes invalid JSON: %v", typ, err)
		}
	}
}

func TestReplyID(t *testing.T) {
	if _, ok := ReplyID(&TrackUpdate{}); ok {
		t.Error("track-update is not a reply")
	}
	if _, ok := ReplyID(&CollectionInfo{}); ok {
		t.Error("collection-info without id is a push")
	}
	if id, ok := ReplyID(NewError(9, shared.ErrRequestTimeout)); !ok || id != 9 {
		t.Errorf("ReplyID(error) = %d, %v", id, ok)
	}
}

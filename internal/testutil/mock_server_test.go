package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func TestMockServer_SetPages_WalksCursor(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	mock.SetPages("/v1/items/", []Page{
		{Items: []any{"a", "b"}, NextCursor: "p2"},
		{Items: []any{"c", "d"}, NextCursor: "p3"},
		{Items: []any{"e"}, NextCursor: ""},
	})

	var got []any
	cursor := ""
	for i := 0; i < 10; i++ {
		url := mock.URL() + "/v1/items/"
		if cursor != "" {
			url += "?cursor=" + cursor
		}
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var body struct {
			Items      []any  `json:"items"`
			NextCursor string `json:"next_cursor"`
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		got = append(got, body.Items...)
		if body.NextCursor == "" {
			break
		}
		cursor = body.NextCursor
	}

	if len(got) != 5 {
		t.Fatalf("collected %d items across pages, want 5: %v", len(got), got)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.GetRequestCount())
	}
}

func TestMockServer_DefaultHandler_HonorsConditionalRequest(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	req, _ := http.NewRequest(http.MethodGet, mock.URL()+"/unregistered/", nil)
	req.Header.Set("If-None-Match", `"anything"`)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", resp.StatusCode)
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("ConditionalCount = %d, want 1", mock.GetConditionalCount())
	}
}

func TestMockServer_SetResponse(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/broken/", NewServerErrorResponse())

	resp, err := http.Get(mock.URL() + "/v1/broken/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

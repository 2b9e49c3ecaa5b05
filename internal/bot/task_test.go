package bot

import (
	"testing"

	"github.com/ysmood/gson"
)

func TestDecodePageInfo(t *testing.T) {
	v := gson.New(map[string]any{"title": "Example Domain", "links": 3})

	info := decodePageInfo(v)
	if info.Title != "Example Domain" {
		t.Errorf("Expected title, got %q", info.Title)
	}
	if info.Links != 3 {
		t.Errorf("Expected 3 links, got %d", info.Links)
	}
}

func TestDecodePageInfo_MissingFields(t *testing.T) {
	info := decodePageInfo(gson.New(map[string]any{}))
	if info.Title != "" || info.Links != 0 {
		t.Errorf("Expected zero values, got %+v", info)
	}
}

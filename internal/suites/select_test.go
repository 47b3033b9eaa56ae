package suites

import (
	"reflect"
	"testing"
)

func defaultMapping() map[string][]string {
	return map[string][]string{
		"controls": {"test_suite1", "test_suite2"},
		"audio":    {"test_suite3", "test_suite8"},
		"android":  {"test_suite4", "test_suite5"},
		"plugin":   {"test_suite6", "test_suite9"},
		"video":    {"test_suite7", "test_suite10"},
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name           string
		files          []string
		wantCategories []string
		wantSuites     []string
	}{
		{
			name:           "case-insensitive top-level match",
			files:          []string{"Audio/mixer.cpp"},
			wantCategories: []string{"audio"},
			wantSuites:     []string{"test_suite3", "test_suite8"},
		},
		{
			name:           "segment is a substring of several keys",
			files:          []string{"a/readme.md"},
			wantCategories: []string{"android", "audio"},
			wantSuites:     []string{"test_suite4", "test_suite5", "test_suite3", "test_suite8"},
		},
		{
			name:           "only the first segment counts",
			files:          []string{"src/video/decoder.cpp"},
			wantCategories: nil,
			wantSuites:     nil,
		},
		{
			name:           "several files are de-duplicated in order",
			files:          []string{"video/a.cpp", "Plugin/b.cpp", "VIDEO/c.cpp"},
			wantCategories: []string{"video", "plugin"},
			wantSuites:     []string{"test_suite7", "test_suite10", "test_suite6", "test_suite9"},
		},
		{
			name:           "top-level file",
			files:          []string{"controls"},
			wantCategories: []string{"controls"},
			wantSuites:     []string{"test_suite1", "test_suite2"},
		},
		{
			name:  "leading slash yields no segment",
			files: []string{"/audio/x.cpp"},
		},
		{
			name: "no files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.files, defaultMapping())
			if !reflect.DeepEqual(got.Categories, tt.wantCategories) {
				t.Errorf("Categories = %v, want %v", got.Categories, tt.wantCategories)
			}
			if !reflect.DeepEqual(got.Suites, tt.wantSuites) {
				t.Errorf("Suites = %v, want %v", got.Suites, tt.wantSuites)
			}
		})
	}
}

func TestSelectSharedSuites(t *testing.T) {
	mapping := map[string][]string{
		"audio": {"smoke", "audio_full"},
		"video": {"smoke", "video_full"},
	}

	got := Select([]string{"video/x", "audio/y"}, mapping)
	want := []string{"smoke", "video_full", "audio_full"}
	if !reflect.DeepEqual(got.Suites, want) {
		t.Errorf("Suites = %v, want %v", got.Suites, want)
	}
}

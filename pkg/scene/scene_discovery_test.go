package scene

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cover", "Cover"},
		{"hollow-glass", "Hollow Glass"},
		{"three_spheres", "Three Spheres"},
		{"GOLD-sphere", "Gold Sphere"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := titleCase(tt.input)
			if result != tt.expected {
				t.Errorf("titleCase(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func writeSceneFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write scene file: %v", err)
	}
	return path
}

func TestParseSceneMetadata(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  string
		expected SceneInfo
	}{
		{
			name:     "full header",
			filename: "cover-wide.toml",
			content: `# Scene: Cover
# Variant: Wide
# Description: Random spheres
# Group: Showcase
[[spheres]]
center = [0, 0, -1]
radius = 0.5
material = "m"
# Scene: Ignored
`,
			expected: SceneInfo{
				Name:        "Cover",
				DisplayName: "Cover - Wide",
				Description: "Random spheres",
				Group:       "Showcase",
				Variant:     "Wide",
			},
		},
		{
			name:     "no header",
			filename: "three_spheres.toml",
			content:  "[[spheres]]\n",
			expected: SceneInfo{
				Name:        "Three Spheres",
				DisplayName: "Three Spheres",
				Group:       "Scene Files",
			},
		},
		{
			name:     "comment without key",
			filename: "plain.toml",
			content:  "# just a note\n# Scene: Plain Scene\n",
			expected: SceneInfo{
				Name:        "Plain Scene",
				DisplayName: "Plain Scene",
				Group:       "Scene Files",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSceneFile(t, dir, tt.filename, tt.content)

			info, err := ParseSceneMetadata(path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			tt.expected.ID = path
			tt.expected.FilePath = path
			tt.expected.Type = "toml"
			if info != tt.expected {
				t.Errorf("ParseSceneMetadata() = %+v, want %+v", info, tt.expected)
			}
		})
	}
}

func TestListSceneFiles(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		scenes, err := ListSceneFiles(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(scenes) != 0 {
			t.Errorf("Expected no scenes, got %d", len(scenes))
		}
	})

	t.Run("sorted by display name", func(t *testing.T) {
		dir := t.TempDir()
		writeSceneFile(t, dir, "b.toml", "# Scene: Zebra\n")
		writeSceneFile(t, dir, "a.toml", "# Scene: Apple\n")
		writeSceneFile(t, dir, "notes.txt", "# Scene: Not A Scene\n")

		scenes, err := ListSceneFiles(dir)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(scenes) != 2 {
			t.Fatalf("Expected 2 scenes, got %d", len(scenes))
		}
		if scenes[0].DisplayName != "Apple" || scenes[1].DisplayName != "Zebra" {
			t.Errorf("Unexpected order: %q, %q", scenes[0].DisplayName, scenes[1].DisplayName)
		}
	})
}

func TestListAllScenes(t *testing.T) {
	dir := t.TempDir()
	writeSceneFile(t, dir, "custom.toml", "# Scene: Custom\n# Group: Aardvark\n")

	response, err := ListAllScenes(dir)
	if err != nil {
		t.Fatalf("ListAllScenes failed: %v", err)
	}

	if len(response.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(response.Groups))
	}

	// Built-in scenes always come first
	builtin := response.Groups[0]
	if builtin.Name != "Built-in Scenes" {
		t.Errorf("Expected first group to be Built-in Scenes, got %q", builtin.Name)
	}

	ids := map[string]bool{}
	for _, s := range builtin.Scenes {
		if s.Type != "builtin" {
			t.Errorf("Scene %q has type %q", s.ID, s.Type)
		}
		ids[s.ID] = true
	}
	for _, name := range []string{"default", "random", "simple", "spheregrid"} {
		if !ids[name] {
			t.Errorf("Missing built-in scene %q", name)
		}
		if _, err := New(name); err != nil {
			t.Errorf("Listed scene %q cannot be created: %v", name, err)
		}
	}

	files := response.Groups[1]
	if files.Name != "Aardvark" || len(files.Scenes) != 1 || files.Scenes[0].Name != "Custom" {
		t.Errorf("Unexpected file group: %+v", files)
	}
}

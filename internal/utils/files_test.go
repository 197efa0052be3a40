package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/sheetcharts/internal/utils"
)

type doc struct {
	Charts  []string   `json:"charts"`
	RawData [][]string `json:"raw_data"`
}

func TestPrettyYAMLKeepsOrderAndQuotesNumericStrings(t *testing.T) {
	out, err := utils.PrettyYAML(doc{Charts: []string{}, RawData: [][]string{{"Month", "Alice"}, {"Jan", "10"}}})
	if err != nil {
		t.Fatalf("PrettyYAML: %v", err)
	}
	s := string(out)
	if strings.Index(s, "charts:") > strings.Index(s, "raw_data:") {
		t.Fatalf("key order not preserved:\n%s", s)
	}
	if !strings.Contains(s, `"10"`) {
		t.Fatalf("numeric string should stay quoted:\n%s", s)
	}
	if !strings.Contains(s, "- Month") {
		t.Fatalf("expected block sequences:\n%s", s)
	}
}

func TestPrettyJSONNoHTMLEscape(t *testing.T) {
	out, err := utils.PrettyJSON(map[string]string{"title": "A<B"})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if !strings.Contains(string(out), "A<B") {
		t.Fatalf("unexpected escape: %s", out)
	}
}

func TestSafeWriteFileCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := utils.SafeWriteFile(path, []byte("{}")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "{}" {
		t.Fatalf("read back %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

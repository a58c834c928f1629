package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/viper"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
	"github.com/sw33tLie/wpaudit/pkg/pages"
)

func TestNewStoreRequiresCredentials(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("supabase.url", "https://abc.supabase.co")

	_, err := newStore(auditCmd)
	if !errors.Is(err, pages.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	viper.Set("supabase.key", "service-role")
	if _, err := newStore(auditCmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractFromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><body><main>
<div class="elementor-widget-heading"><h2>Our Story</h2></div>
<div class="elementor-widget-text-editor"><p>Family run since 1982.</p></div>
<iframe src="https://www.youtube-nocookie.com/embed/AAAAAAAAAAA"></iframe>
</main></body></html>`
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	extractCmd.SetOut(&out)
	defer extractCmd.SetOut(nil)
	if err := extractCmd.RunE(extractCmd, []string{path}); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var inv inventory.ContentInventory
	if err := json.Unmarshal(out.Bytes(), &inv); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !reflect.DeepEqual(inv.VideoIDs, []string{"AAAAAAAAAAA"}) {
		t.Fatalf("unexpected videos: %#v", inv.VideoIDs)
	}
	if len(inv.Headings) != 1 || inv.Headings[0].Text != "Our Story" {
		t.Fatalf("unexpected headings: %#v", inv.Headings)
	}
}

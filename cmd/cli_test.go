package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so values bound to package
// variables do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points HOME at a temp dir and clears credential variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TIDYLOOM_API_KEY", "TIDYLOOM_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	return home
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is execute that fails the test on error.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

const ordersCSV = "order_id,price_usd\n1,10\n2,\n3,30\n"

func TestCLI_ProfileJSON(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	outPath := filepath.Join(home, "health.json")

	runCmd(t, "profile", data, "--format", "json", "--output", outPath, "-p", "Shop")

	var rep struct {
		Project string `json:"project"`
		Details []struct {
			TableName string `json:"table_name"`
			Columns   map[string]struct {
				NullPercentage string `json:"null_percentage"`
			} `json:"columns"`
		} `json:"details"`
	}
	if err := json.Unmarshal([]byte(readFile(t, outPath)), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Project != "Shop" || len(rep.Details) != 1 || rep.Details[0].TableName != "orders" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if got := rep.Details[0].Columns["price_usd"].NullPercentage; got != "33.33%" {
		t.Fatalf("expected 33.33%%, got %q", got)
	}
}

func TestCLI_ProfileMarkdownAndBadFormat(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)

	out := runCmd(t, "profile", data)
	if !strings.Contains(out, "## orders (3 records)") {
		t.Fatalf("markdown missing table heading:\n%s", out)
	}
	if _, err := execute(t, "profile", data, "--format", "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := execute(t, "profile", filepath.Join(home, "missing*.csv")); err == nil {
		t.Fatal("expected error when nothing matches")
	}
}

func TestCLI_ApplyApprovedYAML(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	approved := writeFile(t, filepath.Join(home, "approved.yaml"),
		"orders:\n  price_usd:\n    action: fill_constant\n    replacement_value: 0\n  ghost:\n    action: drop_row\n")
	outDir := filepath.Join(home, "cleaned")

	out := runCmd(t, "apply", data, "--approved", approved, "--out-dir", outDir)
	if !strings.Contains(out, "Cleaned 1 table(s)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	got := readFile(t, filepath.Join(outDir, "orders_cleaned.csv"))
	if want := "order_id,price_usd\n1,10\n2,0\n3,30\n"; got != want {
		t.Fatalf("cleaned csv mismatch:\nwant %q\ngot  %q", want, got)
	}
	if readFile(t, data) != ordersCSV {
		t.Fatal("original file must not change")
	}
}

func TestCLI_ApplySQLite(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	approved := writeFile(t, filepath.Join(home, "approved.json"), `{"orders":{"price_usd":{"action":"drop_row"}}}`)
	db := filepath.Join(home, "cleaned.db")

	out := runCmd(t, "apply", data, "--approved", approved, "--sqlite", db, "--json")
	var res struct {
		Status   string `json:"status"`
		Manifest []struct {
			Table    string `json:"table"`
			Location string `json:"location"`
			Rows     int    `json:"rows"`
		} `json:"manifest"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, out)
	}
	if res.Status != "success" || len(res.Manifest) != 1 || res.Manifest[0].Rows != 2 {
		t.Fatalf("unexpected envelope: %+v", res)
	}
	if res.Manifest[0].Location != db+"#orders_cleaned" {
		t.Fatalf("unexpected location %q", res.Manifest[0].Location)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("sqlite file missing: %v", err)
	}
}

func TestCLI_ApplyRejectsBadApproval(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	bad := writeFile(t, filepath.Join(home, "approved.json"), `{"orders": [1, 2]}`)
	outDir := filepath.Join(home, "cleaned")

	_, err := execute(t, "apply", data, "--approved", bad, "--out-dir", outDir)
	if err == nil || !strings.HasPrefix(err.Error(), "approve: invalid approved map") {
		t.Fatalf("expected approve-stage error, got %v", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Fatal("nothing should be written for a rejected approval")
	}

	if _, err := execute(t, "apply", data); err == nil {
		t.Fatal("expected error without an approval source")
	}
}

func TestCLI_RecommendMissingKey(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)

	_, err := execute(t, "recommend", data, "--provider", "gemini")
	if err == nil || !strings.Contains(err.Error(), "missing API key") || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected missing key error with hint, got %v", err)
	}
}

func TestCLI_RecommendDryRun(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)

	out := runCmd(t, "recommend", data, "--dry-run")
	if !strings.Contains(out, " - price_usd: 33.33% nulls") || strings.Contains(out, "order_id:") {
		t.Fatalf("unexpected prompt:\n%s", out)
	}
}

// chatStub answers OpenAI-compatible chat completions with content.
func chatStub(t *testing.T, status int, content string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer flag-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLI_RecommendThenApply(t *testing.T) {
	home := isolate(t)
	t.Setenv("TIDYLOOM_API_KEY", "env-key")
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	var calls atomic.Int32
	srv := chatStub(t, http.StatusOK,
		"```json\n{\"orders\":{\"price_usd\":{\"cleaning_action\":\"impute_mean\",\"reasoning\":\"numeric\"}}}\n```", &calls)
	recs := filepath.Join(home, "recs.json")

	out := runCmd(t, "recommend", data,
		"--provider", "openai", "--base-url", srv.URL, "--api-key", "flag-key",
		"--model", "gpt-4o-mini", "--output", recs)
	if !strings.Contains(out, "impute_mean") || !strings.Contains(out, "price_usd") {
		t.Fatalf("review table missing recommendation:\n%s", out)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
	saved := readFile(t, recs)
	if !strings.Contains(saved, `"null_percentage": 33.33`) || !strings.Contains(saved, `"status": "success"`) {
		t.Fatalf("unexpected saved envelope:\n%s", saved)
	}

	outDir := filepath.Join(home, "cleaned")
	runCmd(t, "apply", data, "--from-recommendations", recs, "--out-dir", outDir)
	got := readFile(t, filepath.Join(outDir, "orders_cleaned.csv"))
	if want := "order_id,price_usd\n1,10\n2,20\n3,30\n"; got != want {
		t.Fatalf("cleaned csv mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestCLI_RecommendServiceError(t *testing.T) {
	home := isolate(t)
	data := writeFile(t, filepath.Join(home, "orders.csv"), ordersCSV)
	var calls atomic.Int32
	srv := chatStub(t, http.StatusInternalServerError, "", &calls)

	out, err := execute(t, "recommend", data,
		"--provider", "openai", "--base-url", srv.URL, "--api-key", "flag-key", "--json")
	if err == nil || !strings.Contains(err.Error(), "OpenAI API Error") {
		t.Fatalf("expected service error, got %v", err)
	}
	if !strings.Contains(out, `"status": "error"`) {
		t.Fatalf("expected error envelope:\n%s", out)
	}
	if calls.Load() != 1 {
		t.Fatalf("non-quota errors must not be retried, got %d calls", calls.Load())
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "tidy.yaml")

	runCmd(t, "--config", path, "config", "set", "api_key", "sk-secret-value")
	runCmd(t, "--config", path, "config", "set", "provider", "OpenRouter")
	runCmd(t, "--config", path, "config", "set", "intents.Customer_ID", "Key")
	if _, err := execute(t, "--config", path, "config", "set", "provider", "anthropic"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := execute(t, "--config", path, "config", "set", "nope", "1"); err == nil {
		t.Fatal("expected error for unknown key")
	}

	out := runCmd(t, "--config", path, "config", "show")
	for _, want := range []string{"api_key: sk-****lue", "provider: openrouter", "customer_id: Key"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sk-secret-value") {
		t.Fatal("config show must mask the key")
	}
}

func TestCLI_Models(t *testing.T) {
	isolate(t)
	out := runCmd(t, "models")
	for _, want := range []string{"Gemini (active)", "gemini-3-flash-preview", "OpenRouter", "llama3.1:8b-instruct"} {
		if !strings.Contains(out, want) {
			t.Fatalf("models output missing %q:\n%s", want, out)
		}
	}
	if _, err := execute(t, "models", "--provider", "nope"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

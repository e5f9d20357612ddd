package httphandler_test

import (
	"bytes"
	"encoding/json"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
)

func execFunc(t *testing.T, text string, data any) string {
	t.Helper()
	tmpl, err := template.New("t").Funcs(httphandler.TemplateFuncs()).Parse(text)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, data))
	return buf.String()
}

func TestTemplateFuncs_Strings(t *testing.T) {
	assert.Equal(t, "abcdefg...", execFunc(t, `{{truncate 10 .}}`, "abcdefghijklmnop"))
	assert.Equal(t, "short", execFunc(t, `{{truncate 10 .}}`, "short"))
	assert.Equal(t, "ab", execFunc(t, `{{truncate 2 .}}`, "abcdef"))
	assert.Equal(t, "1 request", execFunc(t, `{{.}} {{pluralize . "request" "requests"}}`, 1))
	assert.Equal(t, "3 requests", execFunc(t, `{{.}} {{pluralize . "request" "requests"}}`, 3))
	assert.Equal(t, "HTTP", execFunc(t, `{{upper .}}`, "http"))
	assert.Equal(t, "a, b", execFunc(t, `{{join . ", "}}`, []string{"a", "b"}))
	assert.Equal(t, "none", execFunc(t, `{{default "none" .}}`, ""))
	assert.Equal(t, "4", execFunc(t, `{{add . 1}}`, 3))
}

func TestTemplateFuncs_Dict(t *testing.T) {
	out := execFunc(t, `{{with dict "a" 1 "b" "x"}}{{.a}}-{{.b}}{{end}}`, nil)
	assert.Equal(t, "1-x", out)
}

func TestTemplateFuncs_CapturedRequest(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	req := collabapi.CapturedRequest{
		"method":    json.RawMessage(`"GET"`),
		"status":    json.RawMessage(`200`),
		"missing":   json.RawMessage(`null`),
		"timestamp": json.RawMessage([]byte(jsonInt(ts.Unix()))),
	}

	assert.Equal(t, "GET", execFunc(t, `{{field . "method"}}`, req))
	assert.Equal(t, "200", execFunc(t, `{{field . "status"}}`, req))
	assert.Empty(t, execFunc(t, `{{field . "missing"}}`, req))
	assert.Empty(t, execFunc(t, `{{field . "absent"}}`, req))
	assert.Equal(t, "2024-03-01 12:30:00", execFunc(t, `{{capturedAt .}}`, req))
	assert.Empty(t, execFunc(t, `{{capturedAt .}}`, collabapi.CapturedRequest{}))
}

func TestTemplateFuncs_TimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{30 * time.Hour, "yesterday"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, execFunc(t, `{{timeAgo .}}`, time.Now().Add(-tt.ago)))
		})
	}
	assert.Empty(t, execFunc(t, `{{timeAgo .}}`, time.Time{}))
}

func TestTemplateFuncs_PrettyJSON(t *testing.T) {
	out := execFunc(t, `{{prettyJSON .}}`, map[string]int{"a": 1})
	assert.Equal(t, "{\n  &#34;a&#34;: 1\n}", out)
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

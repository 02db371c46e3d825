package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// SandboxHTML is the page served by NewSandbox. The title lives at
// "#app > div > h1"; #toggle flips the inline display of #target.
const SandboxHTML = `<!DOCTYPE html>
<html>
<head><title>sandbox</title></head>
<body>
<div id="app">
  <div><h1>Sandbox</h1></div>
  <form onsubmit="return false">
    <input id="name" type="text" value="">
    <select id="colour">
      <option value="red">red</option>
      <option value="blue">blue</option>
    </select>
  </form>
  <button id="toggle" type="button"
    onclick="var t = document.getElementById('target'); t.style.display = t.style.display === 'none' ? 'block' : 'none';">toggle</button>
  <p id="target" style="display: block">now you see me</p>
  <iframe id="child" srcdoc="<p id='inner'>framed</p>"></iframe>
</div>
<script>
  window.__probe = {
    webdriver: navigator.webdriver,
    userAgent: navigator.userAgent,
    platform: navigator.platform
  };
</script>
</body>
</html>
`

// NewSandbox serves SandboxHTML at "/" for the duration of the test.
func NewSandbox(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(SandboxHTML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

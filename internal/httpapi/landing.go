package httpapi

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>docqa</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 720px; width: 92%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  input[type=text] { width: 100%; padding: 0.6rem; border-radius: 8px; border: 1px solid #334155; background: #0f172a; color: #e2e8f0; margin-bottom: 0.5rem; }
  button { padding: 0.5rem 1rem; border: 0; border-radius: 8px; background: #38bdf8; color: #0f172a; cursor: pointer; margin-right: 0.5rem; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; white-space: pre-wrap; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>docqa</h1>
  <p class="subtitle">Upload documents, then search or ask questions about them.</p>

  <div class="section">
    <div class="section-title">Upload</div>
    <form id="upload">
      <input type="file" name="documents" multiple accept=".txt,.text,.md,.markdown,.pdf">
      <button type="submit">Upload</button>
    </form>
  </div>

  <div class="section">
    <div class="section-title">Question</div>
    <input type="text" id="question" placeholder="What does the contract say about termination?">
    <button id="search">Search</button>
    <button id="ask">Ask</button>
  </div>

  <div class="section">
    <pre id="output">No results yet.</pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p class="endpoint">POST /api/upload &middot; POST /api/query &middot; POST /api/ask &middot; GET /api/documents &middot; /mcp &middot; /health</p>
  </div>
</div>
<script>
const out = document.getElementById("output");
const show = (data) => { out.textContent = JSON.stringify(data, null, 2); };
const post = (path, body) => fetch(path, { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(body) }).then(r => r.json());

document.getElementById("upload").addEventListener("submit", (e) => {
  e.preventDefault();
  out.textContent = "Uploading...";
  fetch("/api/upload", { method: "POST", body: new FormData(e.target) }).then(r => r.json()).then(show);
});
document.getElementById("search").addEventListener("click", () => {
  post("/api/query", { query: document.getElementById("question").value }).then(show);
});
document.getElementById("ask").addEventListener("click", () => {
  out.textContent = "Thinking...";
  post("/api/ask", { question: document.getElementById("question").value }).then(show);
});
</script>
</body>
</html>`

// NewLandingHandler serves the upload and question page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(landingHTML))
	}
}

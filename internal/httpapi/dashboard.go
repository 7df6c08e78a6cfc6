package httpapi

import (
	"fmt"
	"net/http"
)

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>notebridge</title>
  <style>
    body {
      margin: 0;
      font-family: "Segoe UI", "Helvetica Neue", sans-serif;
      color: #102223;
      background: #f8f4ea;
      padding: 24px;
    }
    .shell { max-width: 720px; margin: 0 auto; display: grid; gap: 14px; }
    h1 { margin: 0; font-size: 1.4rem; }
    .sub { color: #6f7d7d; font-size: 0.9rem; }
    .cards { display: grid; gap: 10px; grid-template-columns: repeat(auto-fit, minmax(140px, 1fr)); }
    .card {
      background: #fffdf9;
      border: 1px solid #d7cbb3;
      border-radius: 12px;
      padding: 12px;
    }
    .label { text-transform: uppercase; letter-spacing: 0.08em; font-size: 0.66rem; color: #6f7d7d; }
    .value { margin-top: 6px; font-size: 1.3rem; font-weight: 700; }
    .value.ok { color: #0f8f53; }
    .value.err { color: #c2483f; }
    .controls { display: flex; gap: 10px; align-items: center; }
    .controls input {
      flex: 1; border-radius: 8px; border: 1px solid #d7cbb3;
      padding: 8px 10px; font-size: 0.9rem;
    }
    #statusMessage { color: #6f7d7d; font-size: 0.84rem; }
  </style>
</head>
<body>
  <main class="shell">
    <section>
      <h1>notebridge</h1>
      <div class="sub">Session note synchronization daemon</div>
    </section>
    <section class="controls">
      <input id="token" type="password" placeholder="API token (if configured)" autocomplete="off" />
      <span id="statusMessage">loading</span>
    </section>
    <section class="cards">
      <article class="card"><div class="label">Sink</div><div id="sink" class="value">-</div></article>
      <article class="card"><div class="label">Queue Depth</div><div id="queueDepth" class="value">-</div></article>
      <article class="card"><div class="label">Tracked Sessions</div><div id="sessions" class="value">-</div></article>
      <article class="card"><div class="label">Handler Failures</div><div id="failures" class="value">-</div></article>
      <article class="card"><div class="label">Discarded Writes</div><div id="discarded" class="value">-</div></article>
    </section>
  </main>
  <script>
    (function () {
      const dom = {
        token: document.getElementById("token"),
        statusMessage: document.getElementById("statusMessage"),
        sink: document.getElementById("sink"),
        queueDepth: document.getElementById("queueDepth"),
        sessions: document.getElementById("sessions"),
        failures: document.getElementById("failures"),
        discarded: document.getElementById("discarded"),
      };
      async function refresh() {
        const headers = {};
        const token = dom.token.value.trim();
        if (token) {
          headers["Authorization"] = "Bearer " + token;
        }
        try {
          const response = await fetch("/v1/status", { headers });
          if (!response.ok) {
            throw new Error("status " + response.status);
          }
          const status = await response.json();
          dom.sink.textContent = status.sinkAvailable ? "available" : "unavailable";
          dom.sink.className = status.sinkAvailable ? "value ok" : "value err";
          dom.queueDepth.textContent = String(status.queueDepth);
          dom.sessions.textContent = String(status.trackedSessions);
          dom.failures.textContent = String(status.handlerFailures);
          dom.discarded.textContent = String(status.discardedItems);
          dom.statusMessage.textContent = "updated " + new Date().toLocaleTimeString();
        } catch (err) {
          dom.statusMessage.textContent = String(err && err.message ? err.message : err);
        }
      }
      dom.token.addEventListener("change", refresh);
      setInterval(refresh, 5000);
      refresh();
    })();
  </script>
</body>
</html>`

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, dashboardHTML)
}

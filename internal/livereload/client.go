package livereload

import (
	"net/http"
)

// clientScript is served to proxied pages. It reconnects with a capped
// backoff when the dev server restarts.
const clientScript = `(function () {
  if (window.__wpforge) { return; }
  window.__wpforge = true;

  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var endpoint = scheme + location.host + "/__wpforge/ws";
  var delay = 500;

  function swapStyles(paths) {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    var matched = false;
    links.forEach(function (link) {
      var href = link.getAttribute("href");
      if (!href) { return; }
      var base = href.split("?")[0];
      var hit = !paths || paths.length === 0 || paths.some(function (p) {
        return base.slice(-p.length) === p;
      });
      if (!hit) { return; }
      matched = true;
      var next = link.cloneNode();
      next.href = base + "?wpforge=" + Date.now();
      next.onload = function () { link.remove(); };
      link.parentNode.insertBefore(next, link.nextSibling);
    });
    return matched;
  }

  function showError(title, message) {
    var box = document.getElementById("__wpforge-error");
    if (!box) {
      box = document.createElement("pre");
      box.id = "__wpforge-error";
      box.style.cssText = "position:fixed;left:0;right:0;bottom:0;z-index:2147483647;" +
        "margin:0;padding:16px;max-height:50vh;overflow:auto;background:#1e1e1e;" +
        "color:#ff6b6b;font:13px/1.4 monospace;white-space:pre-wrap;";
      box.onclick = function () { box.remove(); };
      document.body.appendChild(box);
    }
    box.textContent = title + "\n\n" + message;
  }

  function clearError() {
    var box = document.getElementById("__wpforge-error");
    if (box) { box.remove(); }
  }

  function connect() {
    var ws = new WebSocket(endpoint);
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (event) {
      var msg;
      try { msg = JSON.parse(event.data); } catch (e) { return; }
      switch (msg.type) {
        case "reload":
          location.reload();
          break;
        case "css":
          clearError();
          if (!swapStyles(msg.paths)) { location.reload(); }
          break;
        case "error":
          showError(msg.title || "Build error", msg.message || "");
          break;
      }
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 5000);
    };
  }

  connect();
})();
`

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(clientScript))
}

package view

import (
	"html/template"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// tmplFuncs: общие функции шаблонов.
var tmplFuncs = template.FuncMap{
	"label":    func(e domain.Event) string { return e.Label() },
	"received": func(e domain.Event) string { return e.ReceivedAt() },
	"target":   func(e domain.Event) string { return e.DrilldownTarget() },
	"latency":  FormatLatency,
	"amount":   domain.FormatAmount,
}

var feedTmpl = template.Must(template.New("feed").Funcs(tmplFuncs).Parse(`<section id="feed">
<h2>Live System Events (WebSocket)</h2>
{{- if not . }}
<div class="empty">No events received yet.</div>
{{- else }}
<ul class="events">
{{- range . }}
<li><span class="received">[{{ received . }}]</span> <span>{{ .Type }}: {{ label . }}</span></li>
{{- end }}
</ul>
{{- end }}
</section>`))

var anomalyRowsTmpl = template.Must(template.New("anomalies").Funcs(tmplFuncs).Parse(`<ul id="anomalies" class="events">
{{- range . }}
<li class="clickable" data-drilldown="anomaly" data-target="{{ target . }}" title="Click for details"><span class="received">[{{ received . }}]</span> <span>{{ .Type }}: {{ label . }}</span></li>
{{- end }}
</ul>`))

var modalTmpl = template.Must(template.New("modal").Parse(`{{- if .Open -}}
<div class="modal-overlay" id="modal-{{ .Kind }}">
<div class="modal">
<button class="close" data-close="{{ .Kind }}" aria-label="Close">&times;</button>
<h2>{{ .Title }}</h2>
{{- if .Loading }}
<div class="spinner" role="status">Loading...</div>
{{- else if .Error }}
<div class="error">{{ .Error }}</div>
{{- else if .Fields }}
<div class="fields">
{{- range .Fields }}
<div><b>{{ .Key }}:</b> {{ .Value }}</div>
{{- end }}
</div>
{{- else }}
<div class="empty">No {{ .Noun }} data found.</div>
{{- end }}
</div>
</div>
{{- end -}}`))

var summaryTmpl = template.Must(template.New("summary").Parse(`<section id="summary">
<div class="cards">
<div class="card red"><div class="value">{{ .KPIs.Anomalies }}</div><div class="label">Total Anomalies</div></div>
<div class="card blue"><div class="value">{{ .KPIs.ComplianceReports }}</div><div class="label">Compliance Reports</div></div>
<div class="card {{ if .Summary.Healthy }}green{{ else }}yellow{{ end }}"><div class="value">{{ .KPIs.SystemHealth }}</div><div class="label">System Health</div></div>
</div>
{{- if .Summary.Healthy }}
<div class="health ok">All systems operational</div>
{{- else }}
<div class="health issues"><b>Issues detected:</b> {{ range $i, $s := .Summary.Issues }}{{ if $i }}, {{ end }}{{ $s }}{{ end }}</div>
{{- end }}
</section>`))

var bannerTmpl = template.Must(template.New("banner").Parse(`<div id="banner">{{ if . }}<div class="banner error">{{ . }}</div>{{ end }}</div>`))

var slaTmpl = template.Must(template.New("sla").Funcs(tmplFuncs).Parse(`<div id="sla" class="card">
<h3>SLA Metrics</h3>
{{- if not . }}
<div class="empty">Loading...</div>
{{- else }}
<div><b>{{ .SLABreaches }}</b> Breaches <b>{{ .Count }}</b> Calls</div>
<div>Avg: <b>{{ latency .AverageLatencyMs }}</b>ms Max: <b>{{ latency .MaxLatencyMs }}</b>ms Min: <b>{{ latency .MinLatencyMs }}</b>ms</div>
<div class="muted">SLA Target: {{ .SLAMs }}ms</div>
{{- end }}
</div>`))

var alertsTmpl = template.Must(template.New("alerts").Parse(`<div id="alerts" class="card">
<h3>Correlated Alerts</h3>
{{- if not .Groups }}
<div class="empty">No correlated alerts</div>
{{- else }}
<table>
<thead><tr><th>Customer</th><th>Type</th><th>Count</th><th>Start</th><th>End</th></tr></thead>
<tbody>
{{- range .Groups }}
<tr class="clickable" data-drilldown="alert_group" data-target="{{ .Key }}" title="Click for details"><td>{{ .CustomerID }}</td><td>{{ .Type }}</td><td>{{ .Count }}</td><td>{{ .StartTime }}</td><td>{{ .EndTime }}</td></tr>
{{- end }}
</tbody>
</table>
{{- if .Note }}
<div class="muted">{{ .Note }}</div>
{{- end }}
{{- end }}
</div>`))

var transactionsTmpl = template.Must(template.New("transactions").Funcs(tmplFuncs).Parse(`<section id="transactions">
<form class="filters" data-transactions>
<input type="text" name="customer_id" placeholder="Filter by Customer ID" value="{{ .Query.CustomerID }}">
<label><input type="checkbox" name="anomalies_only" value="true"{{ if .Query.AnomaliesOnly }} checked{{ end }}> Only anomalies</label>
<button type="submit">Refresh</button>
</form>
<table>
<thead><tr><th>ID</th><th>Timestamp</th><th>Amount</th><th>Type</th><th>Customer</th><th>Anomaly</th></tr></thead>
<tbody>
{{- if .Loading }}
<tr><td colspan="6" class="empty">Loading...</td></tr>
{{- else if .Error }}
<tr><td colspan="6" class="error">{{ .Error }}</td></tr>
{{- else if not .Items }}
<tr><td colspan="6" class="empty">No transactions found.</td></tr>
{{- else }}
{{- range .Items }}
{{- if .IsAnomaly }}
<tr class="anomaly clickable" data-drilldown="anomaly" data-target="{{ .ID }}" title="Click for details">
{{- else }}
<tr>
{{- end }}
<td class="mono">{{ .ID }}</td><td>{{ .Timestamp }}</td><td>{{ amount .Amount }}</td><td>{{ .Type }}</td><td>{{ .CustomerID }}</td><td>{{ if .IsAnomaly }}<span class="badge red">Anomaly</span>{{ else }}<span class="badge green">Normal</span>{{ end }}</td></tr>
{{- end }}
{{- end }}
</tbody>
</table>
<div class="pager">
<button data-page="{{ .Prev }}"{{ if not .HasPrev }} disabled{{ end }}>Previous</button>
<span>Page {{ .Query.Page }}</span>
<button data-page="{{ .Next }}"{{ if not .HasNext }} disabled{{ end }}>Next</button>
</div>
</section>`))

var exportsTmpl = template.Must(template.New("exports").Parse(`<section id="exports">
<label>From <input type="date" name="start_date"></label>
<label>To <input type="date" name="end_date"></label>
{{- range . }}
<button data-export="{{ .Kind }}">{{ .Title }}</button>
{{- end }}
</section>`))

var panelsTmpl = template.Must(template.New("panels").Parse(`<section id="panels">
{{- range . }}
<div class="panel" data-subsystem="{{ .Subsystem }}">
<h3>{{ .Title }}</h3>
{{- if .Data }}
<pre>{{ printf "%s" .Data }}</pre>
{{- else }}
<div class="empty">Loading...</div>
{{- end }}
</div>
{{- end }}
</section>`))

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Enterprise Observability Platform</title>
</head>
<body>
<h1>Enterprise Observability Platform</h1>
{{ .Summary }}
{{ .Feed }}
{{ .Anomalies }}
<div id="actions">
<button data-drilldown="incident">Demo Incident Drilldown</button>
<button data-drilldown="violation">Demo Compliance Violation Drilldown</button>
{{- range .Commands }}
<button data-command="{{ .Name }}">{{ .Title }}</button>
{{- end }}
</div>
{{ .Banner }}
<div id="widgets">
{{- range .Widgets }}
<form class="widget" data-widget="{{ .Name }}"><h3>{{ .Title }}</h3>
{{- range $k, $v := .Defaults }}
<label>{{ $k }} <input name="{{ $k }}" value="{{ $v }}"></label>
{{- end }}
<button type="submit">Run</button>
<div class="result" id="widget-{{ .Name }}"></div>
</form>
{{- end }}
</div>
{{ .Exports }}
{{ .Transactions }}
{{ .SLA }}
{{ .Alerts }}
{{ .Panels }}
<div id="modals"></div>
<script>
(function () {
  function post(url, body) {
    return fetch(url, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body || {})});
  }
  function reload(id, url) {
    fetch(url).then(function (r) { return r.text(); }).then(function (html) {
      var el = document.getElementById(id);
      if (el) { el.outerHTML = html; }
    });
  }
  function modal(kind) {
    fetch("/fragments/modal/" + kind).then(function (r) { return r.text(); }).then(function (html) {
      var box = document.getElementById("modal-box-" + kind);
      if (!box) { box = document.createElement("div"); box.id = "modal-box-" + kind; document.getElementById("modals").appendChild(box); }
      box.innerHTML = html;
    });
  }
  var txQuery = {page: 1, customer_id: "", anomalies_only: ""};
  function transactions() {
    reload("transactions", "/fragments/transactions?" + new URLSearchParams(txQuery).toString());
  }
  document.addEventListener("click", function (e) {
    var p = e.target.closest("[data-page]");
    if (p) { txQuery.page = p.dataset.page; transactions(); return; }
    var x = e.target.closest("[data-export]");
    if (x) {
      var q = new URLSearchParams();
      document.querySelectorAll("#exports input").forEach(function (i) { if (i.value) { q.set(i.name, i.value); } });
      window.location = "/api/v1/exports/" + x.dataset.export + "?" + q.toString();
      return;
    }
    var t = e.target.closest("[data-drilldown],[data-close],[data-command]");
    if (!t) { return; }
    if (t.dataset.close) { fetch("/api/v1/drilldowns/" + t.dataset.close, {method: "DELETE"}); return; }
    if (t.dataset.command) { post("/api/v1/actions/" + t.dataset.command); return; }
    post("/api/v1/drilldowns/" + t.dataset.drilldown, {target: t.dataset.target || ""});
  });
  document.addEventListener("submit", function (e) {
    var tf = e.target.closest("form[data-transactions]");
    if (tf) {
      e.preventDefault();
      txQuery = {page: 1, customer_id: tf.customer_id.value, anomalies_only: tf.anomalies_only.checked ? "true" : ""};
      transactions();
      return;
    }
    var f = e.target.closest("form[data-widget]");
    if (!f) { return; }
    e.preventDefault();
    var params = {};
    new FormData(f).forEach(function (v, k) { params[k] = v; });
    post("/api/v1/actions/" + f.dataset.widget, params);
  });
  transactions();
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onmessage = function (m) {
    var msg = JSON.parse(m.data);
    switch (msg.type) {
    case "feed": reload("feed", "/fragments/feed"); reload("anomalies", "/fragments/anomalies"); break;
    case "kpis": case "panels": reload("summary", "/fragments/summary"); break;
    case "banner": reload("banner", "/fragments/banner"); break;
    case "drilldown":
      if (msg.data.kind.indexOf("widget:") === 0) {
        var name = msg.data.kind.slice(7);
        fetch("/fragments/widget/" + name).then(function (r) { return r.text(); }).then(function (html) {
          document.getElementById("widget-" + name).innerHTML = html;
        });
      } else { modal(msg.data.kind); }
      break;
    }
  };
})();
</script>
</body>
</html>`))

var widgetResultTmpl = template.Must(template.New("widget").Parse(`
{{- if .Loading }}<div class="spinner" role="status">Loading...</div>
{{- else if .Error }}<div class="error">{{ .Error }}</div>
{{- else if .Data }}<div class="fields">
{{- range .Data }}
<div><b>{{ .Key }}:</b> {{ .Value }}</div>
{{- end }}
</div>
{{- end }}`))

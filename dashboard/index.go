package dashboard

const indexHTML = `<!doctype html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Internet Speed and Latency Monitor</title>
	<script src="https://cdn.plot.ly/plotly-2.35.2.min.js" charset="utf-8"></script>
	<style>
		body {
			text-align: center;
			background-color: #f0f4f8;
			font-family: Arial, sans-serif;
			padding: 20px;
			margin: 0;
		}
		h1 {
			color: #1a76d2;
			padding: 10px;
			font-size: 36px;
			margin-bottom: 10px;
		}
		.subtitle {
			font-size: 20px;
			color: #555555;
			margin-bottom: 30px;
		}
		#live-stats {
			padding: 20px;
			display: flex;
			justify-content: space-around;
			flex-wrap: wrap;
		}
		.stat {
			padding: 20px;
			border-radius: 10px;
			box-shadow: 0 4px 8px rgba(0,0,0,0.1);
			flex: 1;
			margin: 10px;
		}
		.stat p {
			font-size: 18px;
			color: #555;
		}
		#live-graph {
			width: 100%;
			height: 60vh;
			margin: 0 auto;
		}
		footer {
			font-size: 12px;
			color: #888;
		}
	</style>
</head>
<body>
	<h1>Internet Speed and Latency Monitor</h1>
	<p class="subtitle">A simple tool to see your current internet performance.</p>
	<div id="live-stats"></div>
	<div id="live-graph"><img src="chart.png" alt="Internet Speed and Latency"></div>
	<footer>
		{{if .MetricsPath}}<a href="{{.MetricsPath}}">Metrics</a> &middot; {{end}}<a href="api/snapshot">Snapshot</a>{{if .Version}} &middot; Version {{.Version}}{{end}}
	</footer>
	<script>
		const refresh = {{.RefreshMillis}};
		const stats = document.getElementById("live-stats");
		const graph = document.getElementById("live-graph");
		let polling = null;

		function renderStats(snapshot) {
			stats.replaceChildren(...snapshot.stats.map(function (s) {
				const card = document.createElement("div");
				card.className = "stat";
				card.style.backgroundColor = s.background;
				const value = document.createElement("h2");
				value.style.color = s.color;
				value.textContent = s.text;
				if (s.id === "latency" && !snapshot.latency_reachable) {
					value.textContent += " (unreachable)";
				}
				const label = document.createElement("p");
				label.textContent = s.label;
				card.append(value, label);
				return card;
			}));
		}

		function render(snapshot) {
			renderStats(snapshot);
			if (window.Plotly) {
				Plotly.react(graph, snapshot.chart.data, snapshot.chart.layout, {responsive: true});
			} else {
				graph.firstElementChild.src = "chart.png?t=" + Date.now();
			}
		}

		function poll() {
			fetch("api/snapshot", {cache: "no-store"})
				.then(function (r) { return r.json(); })
				.then(render)
				.catch(function () {});
		}

		function startPolling() {
			if (polling === null) {
				poll();
				polling = setInterval(poll, refresh);
			}
		}

		function connect() {
			if (!window.WebSocket) {
				startPolling();
				return;
			}
			const proto = location.protocol === "https:" ? "wss://" : "ws://";
			const path = location.pathname.replace(/[^/]*$/, "") + "ws";
			const socket = new WebSocket(proto + location.host + path);
			socket.onmessage = function (event) { render(JSON.parse(event.data)); };
			socket.onclose = startPolling;
		}

		connect();
	</script>
</body>
</html>
`

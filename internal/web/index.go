package web

import "net/http"

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Screen Activity Monitor</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-secondary: #1a1a1a;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --border-strong: #ecf0f1;
            --accent-color: #3498db;
            --danger-color: #e74c3c;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg-primary);
            padding: 20px;
            color: var(--text-primary);
        }

        .header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 30px;
        }

        h1 {
            color: var(--text-secondary);
            font-size: 2rem;
            margin: 0;
        }

        .dashboard {
            display: flex;
            gap: 20px;
            flex-wrap: wrap;
        }

        .report-box {
            flex: 1;
            min-width: 300px;
            background: var(--bg-secondary);
            border-radius: 8px;
            box-shadow: 0 2px 4px var(--shadow);
            padding: 24px;
        }

        .report-box h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
        }

        .controls label {
            display: block;
            margin: 12px 0 4px;
            color: var(--text-muted);
            font-size: 0.9rem;
        }

        .controls input {
            width: 100%;
            padding: 8px;
            border: 1px solid var(--border-strong);
            border-radius: 4px;
        }

        .controls .buttons {
            display: flex;
            gap: 10px;
            margin-top: 20px;
        }

        .btn {
            flex: 1;
            padding: 10px 16px;
            border: none;
            border-radius: 4px;
            cursor: pointer;
            font-weight: 600;
            color: white;
            background: var(--accent-color);
        }

        .btn.danger {
            background: var(--danger-color);
        }

        .btn:disabled {
            opacity: 0.5;
            cursor: not-allowed;
        }

        .status {
            padding: 12px 8px;
            font-weight: 500;
        }

        .status .dot {
            display: inline-block;
            width: 10px;
            height: 10px;
            border-radius: 50%;
            background: var(--text-muted);
            margin-right: 8px;
        }

        .status.recording .dot {
            background: var(--danger-color);
        }

        .app-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 12px 8px;
            border-bottom: 1px solid var(--border-color);
            position: relative;
            border-radius: 4px;
        }

        .app-item::before {
            content: '';
            position: absolute;
            left: 0;
            top: 0;
            height: 100%;
            width: var(--bar-width, 0%);
            background: var(--accent-color);
            opacity: 0.15;
            border-radius: 4px;
            z-index: 0;
        }

        .app-item > * {
            position: relative;
            z-index: 1;
        }

        .app-item:last-child {
            border-bottom: none;
        }

        .app-name {
            font-weight: 500;
            color: var(--text-primary);
        }

        .app-count {
            color: var(--text-muted);
            font-size: 0.9rem;
        }

        .app-percentage {
            color: var(--accent-color);
            font-weight: 600;
            display: inline-block;
            min-width: 5em;
            text-align: right;
        }

        .loading {
            color: var(--text-muted);
            font-style: italic;
        }

        .total {
            margin-top: 20px;
            padding-top: 15px;
            border-top: 2px solid var(--border-strong);
            font-weight: 600;
            font-size: 1.1rem;
            color: var(--heading-color);
        }

        .listing {
            overflow-y: auto;
            overflow-x: hidden;
            max-height: calc(100vh - 320px);
        }

        @media (max-width: 1024px) {
            .dashboard {
                flex-direction: column;
            }

            .report-box {
                min-width: 100%;
            }
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Screen Activity Monitor</h1>
    </div>
    <div class="dashboard">
        <div class="report-box">
            <h2>Session</h2>
            <div class="controls">
                <label for="interval">Capture interval (seconds, 1-60)</label>
                <input type="number" id="interval" min="1" max="60" value="5">
                <label for="duration">Duration (minutes, 1-120, 0 = until stopped)</label>
                <input type="number" id="duration" min="0" max="120" value="5">
                <div class="buttons">
                    <button class="btn" onclick="startSession()">Start</button>
                    <button class="btn" onclick="stopSession()">Stop</button>
                    <button class="btn danger" onclick="clearData()">Clear Data</button>
                </div>
            </div>
            <div hx-get="/api/status" hx-trigger="load, every 2s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>

        <div class="report-box">
            <h2>Application Usage</h2>
            <div hx-get="/api/summary" hx-trigger="load, every 5s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
    </div>
    <script>
        async function post(url, body) {
            const resp = await fetch(url, {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: body ? JSON.stringify(body) : '{}'
            });
            if (!resp.ok) {
                alert(await resp.text());
            }
        }

        function startSession() {
            post('/api/start', {
                interval_seconds: parseInt(document.getElementById('interval').value, 10),
                duration_minutes: parseInt(document.getElementById('duration').value, 10)
            });
        }

        function stopSession() {
            post('/api/stop');
        }

        function clearData() {
            if (confirm('Delete all recorded data and screenshots?')) {
                post('/api/clear');
            }
        }
    </script>
</body>
</html>`

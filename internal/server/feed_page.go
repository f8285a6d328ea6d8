package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/nexaguard/internal/security"
)

const feedPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Feed · Nexa Guard</title>
    <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>◉</text></svg>">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --bg: #09090b; --bg-subtle: #18181b; --border: #27272a;
            --text: #fafafa; --text-secondary: #a1a1aa; --text-tertiary: #52525b;
            --accent: #22c55e;
            --low: #22c55e; --medium: #eab308; --critical: #ef4444;
        }
        body {
            font-family: -apple-system, 'Segoe UI', sans-serif;
            background: var(--bg); color: var(--text);
            min-height: 100vh; font-size: 14px;
            -webkit-font-smoothing: antialiased;
        }
        .mono { font-family: ui-monospace, 'SFMono-Regular', Menlo, monospace; }
        .container { max-width: 800px; margin: 0 auto; padding: 0 24px; }
        header {
            border-bottom: 1px solid var(--border); padding: 16px 0;
            position: sticky; top: 0; background: var(--bg); z-index: 100;
        }
        .header-inner { display: flex; justify-content: space-between; align-items: center; }
        .logo { display: flex; align-items: center; gap: 10px; text-decoration: none; color: var(--text); }
        .logo-mark { width: 24px; height: 24px; background: var(--accent); border-radius: 6px; }
        .logo-text { font-weight: 600; font-size: 15px; }

        .feed-header {
            padding: 48px 0 24px;
            display: flex; justify-content: space-between; align-items: flex-end;
            border-bottom: 1px solid var(--border);
        }
        .feed-title { font-size: 24px; font-weight: 600; margin-bottom: 4px; }
        .feed-desc { color: var(--text-secondary); }
        .live-badge {
            display: flex; align-items: center; gap: 8px;
            background: var(--bg-subtle); border: 1px solid var(--border);
            padding: 8px 14px; border-radius: 20px; font-size: 13px; color: var(--text-secondary);
        }
        .live-dot { width: 8px; height: 8px; background: var(--text-tertiary); border-radius: 50%; }
        .live-dot.on { background: var(--accent); animation: pulse 2s ease-in-out infinite; }
        @keyframes pulse { 0%, 100% { opacity: 1; } 50% { opacity: 0.4; } }

        .row {
            display: grid; grid-template-columns: 1fr auto;
            gap: 16px; padding: 20px 0; border-bottom: 1px solid var(--border);
            align-items: start;
        }
        .row.new { animation: slideIn 0.3s ease-out; }
        @keyframes slideIn { from { opacity: 0; transform: translateY(-8px); } to { opacity: 1; transform: translateY(0); } }
        .kind {
            background: var(--bg); border: 1px solid var(--border);
            padding: 2px 8px; border-radius: 4px; font-size: 11px;
            text-transform: uppercase; color: var(--text-tertiary); margin-right: 8px;
        }
        .subject { word-break: break-all; }
        .right { text-align: right; }
        .score { font-size: 18px; font-weight: 600; }
        .LOW { color: var(--low); } .MEDIUM { color: var(--medium); } .CRITICAL { color: var(--critical); }
        .time { font-size: 12px; color: var(--text-tertiary); margin-top: 4px; }
        .empty { text-align: center; padding: 80px 24px; color: var(--text-tertiary); }

        footer { border-top: 1px solid var(--border); padding: 24px 0; margin-top: 48px; text-align: center; color: var(--text-tertiary); font-size: 13px; }
        footer a { color: var(--text-secondary); text-decoration: none; margin: 0 12px; }
    </style>
</head>
<body>
    <header><div class="container header-inner">
        <a href="/feed" class="logo"><div class="logo-mark"></div><span class="logo-text">Nexa Guard</span></a>
    </div></header>
    <main class="container">
        <div class="feed-header">
            <div>
                <h1 class="feed-title">Analysis Feed</h1>
                <p class="feed-desc">Wallet and token risk scores as they are computed</p>
            </div>
            <div class="live-badge"><span class="live-dot" id="dot"></span> Live</div>
        </div>
        <div id="feed"><div class="empty">Loading analyses...</div></div>
    </main>
    <footer><div class="container"><a href="/api/history">API</a><a href="/health">Health</a><a href="/metrics">Metrics</a></div></footer>
    <script>
        const esc = s => String(s).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        const timeAgo = ms => {
            const diff = Math.floor((Date.now() - ms) / 1000);
            if (diff < 5) return 'now';
            if (diff < 60) return diff + 's ago';
            if (diff < 3600) return Math.floor(diff/60) + 'm ago';
            if (diff < 86400) return Math.floor(diff/3600) + 'h ago';
            return Math.floor(diff/86400) + 'd ago';
        };
        const levelFor = (kind, score) => {
            const t = kind === 'token' ? {critical: 70, medium: 30} : {critical: 75, medium: 40};
            if (score > t.critical) return 'CRITICAL';
            if (score > t.medium) return 'MEDIUM';
            return 'LOW';
        };

        let rows = [];

        function rowHTML(e, fresh) {
            const level = e.riskLevel || levelFor(e.type, e.riskScore);
            return '<div class="row'+(fresh ? ' new' : '')+'">'+
                '<div><span class="kind">'+esc(e.type)+'</span><span class="subject mono">'+esc(e.address)+'</span></div>'+
                '<div class="right">'+
                    '<div class="score mono '+level+'">'+e.riskScore+' '+level+'</div>'+
                    '<div class="time">'+timeAgo(e.timestamp)+'</div>'+
                '</div>'+
            '</div>';
        }

        function render(freshFirst) {
            const el = document.getElementById('feed');
            if (!rows.length) { el.innerHTML = '<div class="empty">No analyses yet.<br>Results appear here as wallets and tokens are scored.</div>'; return; }
            el.innerHTML = rows.map((e, i) => rowHTML(e, freshFirst && i === 0)).join('');
        }

        fetch('/api/history').then(r => r.json()).then(data => { rows = data.history || []; render(false); });

        function connect() {
            const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            ws.onopen = () => document.getElementById('dot').classList.add('on');
            ws.onclose = () => { document.getElementById('dot').classList.remove('on'); setTimeout(connect, 3000); };
            ws.onmessage = msg => {
                const ev = JSON.parse(msg.data);
                if (!ev.data || ev.data.subject === undefined) return;
                rows.unshift({
                    type: ev.type === 'token_analyzed' ? 'token' : 'wallet',
                    address: ev.data.subject,
                    riskScore: ev.data.riskScore,
                    riskLevel: ev.data.riskLevel,
                    timestamp: new Date(ev.timestamp).getTime(),
                });
                rows = rows.slice(0, 20);
                render(true);
            };
        }
        connect();
        setInterval(() => render(false), 30000);
    </script>
</body>
</html>`

func feedPageHandler(c *gin.Context) {
	c.Header("Content-Security-Policy", security.PageCSP)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, feedPageHTML)
}

package server

// HTMLPage is the browser UI. It gathers ICE candidates with an
// RTCPeerConnection and posts each one to /candidate.
const HTMLPage = `<!DOCTYPE html>
<html>
<head>
    <title>ICE Candidate Interop</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 900px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #333; margin-bottom: 10px; }
        button {
            background: #4285f4;
            color: white;
            border: none;
            padding: 12px 24px;
            border-radius: 4px;
            cursor: pointer;
            font-size: 16px;
        }
        button:disabled { background: #ccc; cursor: not-allowed; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; font-size: 13px; }
        th, td { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
        .error { color: #721c24; }
    </style>
</head>
<body>
<div class="container">
    <h1>ICE Candidate Interop</h1>
    <p>Gathers candidates in this browser and parses each one on the server.</p>
    <button id="gather">Gather Candidates</button>
    <div id="status"></div>
    <table>
        <thead>
            <tr><th>foundation</th><th>component</th><th>transport</th><th>priority</th>
                <th>address</th><th>port</th><th>type</th><th>related</th><th>extensions</th></tr>
        </thead>
        <tbody id="results"></tbody>
    </table>
</div>
<script>
window.parsed = [];
window.failed = [];

function row(c) {
    const related = c.relAddr ? c.relAddr + ':' + c.relPort : '';
    const exts = (c.extensions || []).map(e => e.key + '=' + e.value).join(' ');
    const tr = document.createElement('tr');
    [c.foundation, c.componentId, c.transport, c.priority, c.address, c.port, c.type, related, exts]
        .forEach(v => { const td = document.createElement('td'); td.textContent = v; tr.appendChild(td); });
    document.getElementById('results').appendChild(tr);
}

async function submit(init) {
    const resp = await fetch('/candidate', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(init),
    });
    const body = await resp.json();
    if (!resp.ok) {
        window.failed.push({candidate: init.candidate, error: body.error});
        return;
    }
    body.candidates.forEach(c => { window.parsed.push(c); row(c); });
}

document.getElementById('gather').onclick = async () => {
    const button = document.getElementById('gather');
    const status = document.getElementById('status');
    button.disabled = true;
    status.textContent = 'Gathering...';

    const pc = new RTCPeerConnection();
    pc.createDataChannel('gather');
    const pending = [];
    const done = new Promise(resolve => {
        pc.onicecandidate = e => {
            if (!e.candidate) { resolve(); return; }
            if (e.candidate.candidate) { pending.push(submit(e.candidate.toJSON())); }
        };
    });
    await pc.setLocalDescription(await pc.createOffer());
    await done;
    await Promise.all(pending);
    pc.close();

    status.textContent = window.parsed.length + ' parsed, ' + window.failed.length + ' failed';
    status.className = window.failed.length ? 'error' : '';
    button.disabled = false;
};
</script>
</body>
</html>
`

package server

import (
	"net/http"
)

func writePage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func writeScript(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleSoundscapePage(w http.ResponseWriter, r *http.Request) {
	writePage(w, soundscapeHTML)
}

func (s *Server) handleSoundscapeJS(w http.ResponseWriter, r *http.Request) {
	writeScript(w, soundscapeJS)
}

func (s *Server) handleMusePage(w http.ResponseWriter, r *http.Request) {
	writePage(w, museHTML)
}

func (s *Server) handleMuseJS(w http.ResponseWriter, r *http.Request) {
	writeScript(w, museJS)
}

const pageStyle = `
    body { font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Arial; margin: 18px; }
    .row { display:flex; gap:12px; flex-wrap:wrap; align-items:center; }
    .pill { padding: 6px 10px; border: 1px solid #ddd; border-radius: 999px; font-size: 12px; background:#fff; }
    button { padding: 8px 12px; border-radius: 10px; border: 1px solid #111; background:#111; color:#fff; cursor:pointer;}
    button.secondary { background:#fff; color:#111; }
    button:disabled { opacity: 0.4; cursor: default; }
    input[type=text] { padding:8px; border-radius:10px; border:1px solid #ddd; min-width: 320px; }
    input[type=number] { padding:8px; border-radius:10px; border:1px solid #ddd; width: 70px; }
    a { color:#111; }
`

const soundscapeHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <title>City Soundscape</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
  <style>` + pageStyle + `
    #map { height: 70vh; margin-top: 14px; border-radius: 14px; border: 1px solid #ddd; }
  </style>
</head>
<body>
  <h2>City Soundscape</h2>

  <div class="row">
    <input id="city" type="text" placeholder="Type a city, e.g. Barcelona" autocomplete="off"/>
    <button id="search">Go</button>
    <button id="listen" class="secondary" disabled>Listen</button>
    <span class="pill" id="status">Type a city and press Go.</span>
    <a href="/muse">Title generator</a>
  </div>

  <div id="map"></div>

  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <script src="/soundscape.js"></script>
</body>
</html>`

// soundscapeJS only executes commands returned by /api/soundscape/*; all
// sequencing decisions are made server side.
const soundscapeJS = `
(function(){
  const cityEl = document.getElementById('city');
  const searchBtn = document.getElementById('search');
  const listenBtn = document.getElementById('listen');
  const statusEl = document.getElementById('status');

  const map = L.map('map').setView([20, 0], 2);
  L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
    maxZoom: 19,
    attribution: '&copy; OpenStreetMap contributors'
  }).addTo(map);
  let marker = null;

  // One handle for intro/arrival/ambience, one for the unlock clip.
  const player = new Audio();
  const unlocker = new Audio();
  let playingKind = null;

  function setStatus(text){ statusEl.textContent = text; }

  async function send(action, body){
    try {
      const r = await fetch('/api/soundscape/' + action, {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(body || {})
      });
      if (!r.ok) {
        setStatus('Server error: ' + r.status);
        return;
      }
      const res = await r.json();
      run(res.commands || []);
    } catch (e) {
      setStatus('Server unreachable.');
    }
  }

  function run(cmds){
    for (const c of cmds) {
      switch (c.type) {
        case 'play': play(c.clip); break;
        case 'stop': stop(c.clip); break;
        case 'focus_map': focus(c.focus); break;
        case 'status': setStatus(c.status); break;
        case 'listen': listenBtn.disabled = !c.listen; break;
      }
    }
  }

  function play(clip){
    const el = clip.kind === 'unlock' ? unlocker : player;
    el.src = clip.url;
    el.loop = !!clip.loop;
    el.muted = !!clip.muted;
    el.volume = clip.volume || 0;
    if (el === player) playingKind = clip.kind;
    const p = el.play();
    if (p && typeof p.catch === 'function') {
      p.catch(err => {
        if (clip.kind === 'unlock') return;
        send('failed', {clip: clip.kind, reason: (err && err.name) || String(err)});
      });
    }
  }

  function stop(clip){
    const el = clip.kind === 'unlock' ? unlocker : player;
    el.pause();
    try { el.currentTime = 0; } catch (e) {}
    if (el === player) playingKind = null;
  }

  function focus(f){
    map.flyTo([f.lat, f.lon], f.zoom, {duration: f.duration_sec});
    if (marker) map.removeLayer(marker);
    marker = L.marker([f.lat, f.lon]).addTo(map).bindPopup(f.popup).openPopup();
  }

  player.addEventListener('ended', () => {
    const kind = playingKind;
    playingKind = null;
    if (kind) send('ended', {clip: kind});
  });

  document.addEventListener('click', () => send('unlock'), {once: true});

  searchBtn.addEventListener('click', () => send('search', {query: cityEl.value}));
  cityEl.addEventListener('keydown', (e) => {
    if (e.key === 'Enter') {
      e.preventDefault();
      send('search', {query: cityEl.value});
    }
  });
  listenBtn.addEventListener('click', () => send('toggle'));

  fetch('/api/soundscape/state').then(r => r.json()).then(res => {
    listenBtn.disabled = !res.state.listen_enabled;
  }).catch(() => {});
})();
`

const museHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <title>Abstract Muse</title>
  <style>` + pageStyle + `
    #title { font-size: 30px; font-weight: 800; margin-top: 22px; }
    #subtitle { color:#666; font-size: 13px; margin-top: 4px; }
    #more { margin-top: 16px; padding-left: 18px; }
    #more li { padding: 4px 0; }
  </style>
</head>
<body>
  <h2>Abstract Muse</h2>

  <div class="row">
    <button id="generate">Generate</button>
    <label><input id="useApi" type="checkbox"/> Use museum words</label>
    <label>Titles <input id="count" type="number" min="1" max="50"/></label>
    <span class="pill" id="pool">Loading words…</span>
    <a href="/">City soundscape</a>
  </div>

  <div id="title">—</div>
  <div id="subtitle">Press the button to create a title.</div>
  <ul id="more"></ul>

  <script src="/muse.js"></script>
</body>
</html>`

const museJS = `
(function(){
  const genBtn = document.getElementById('generate');
  const useApiEl = document.getElementById('useApi');
  const countEl = document.getElementById('count');
  const poolEl = document.getElementById('pool');
  const titleEl = document.getElementById('title');
  const subtitleEl = document.getElementById('subtitle');
  const moreEl = document.getElementById('more');

  function showPool(s){
    poolEl.textContent = s.status + (s.degraded ? ' (fallback words)' : '');
  }

  function render(res){
    const list = res.titles || [];
    titleEl.textContent = list.length ? list[0] : '—';
    subtitleEl.textContent = res.subtitle;
    moreEl.innerHTML = '';
    for (const t of list.slice(1)) {
      const li = document.createElement('li');
      li.textContent = t;
      moreEl.appendChild(li);
    }
    showPool(res);
  }

  async function generate(persist){
    const q = new URLSearchParams({
      use_api: useApiEl.checked ? '1' : '0',
      count: countEl.value || '3',
      persist: persist === false ? '0' : '1'
    });
    try {
      const r = await fetch('/api/muse/titles?' + q.toString());
      render(await r.json());
    } catch (e) {
      subtitleEl.textContent = 'Server unreachable.';
    }
  }

  async function init(){
    try {
      const p = await (await fetch('/api/muse/prefs')).json();
      useApiEl.checked = !!p.use_api;
      countEl.value = p.count;
    } catch (e) {
      useApiEl.checked = true;
      countEl.value = 3;
    }
    poll();
  }

  // first batch renders once the catalog fetch settles
  async function poll(){
    try {
      const s = await (await fetch('/api/muse/status')).json();
      showPool(s);
      if (s.loading) {
        setTimeout(poll, 1000);
        return;
      }
    } catch (e) {}
    generate(false);
  }

  genBtn.addEventListener('click', () => generate());
  useApiEl.addEventListener('change', () => generate());
  countEl.addEventListener('change', () => generate());

  init();
})();
`

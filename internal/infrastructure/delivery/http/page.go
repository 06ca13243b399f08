package httprouter

import (
	"html/template"
	"log/slog"
	"net/http"

	"titan/internal/consts"
	"titan/internal/entity"
)

// pageData feeds indexTemplate.
type pageData struct {
	VideoLabels []string
	AudioLabels []string
	VideoType   string
	AudioType   string
	History     []entity.HistoryRecord
	Hint        string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>Titan Downloader</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #1a1a2e; color: #eee; line-height: 1.6; }
        .container { max-width: 960px; margin: 0 auto; padding: 20px; }
        h1 { color: #00d9ff; margin-bottom: 20px; }
        h2 { color: #00d9ff; margin: 20px 0 15px 0; font-size: 1.3em; border-bottom: 1px solid #333; padding-bottom: 10px; }
        .card { background: #16213e; border-radius: 8px; padding: 20px; box-shadow: 0 2px 10px rgba(0,0,0,0.3); margin-bottom: 20px; }
        .form-group { margin-bottom: 15px; }
        label { display: block; margin-bottom: 5px; color: #aaa; font-size: 0.9em; }
        input, select { width: 100%; padding: 10px 12px; border: 1px solid #333; border-radius: 4px; background: #0f0f23; color: #fff; font-size: 1em; }
        .btn { padding: 10px 20px; border: none; border-radius: 4px; cursor: pointer; font-size: 0.9em; margin-right: 5px; }
        .btn-primary { background: #00d9ff; color: #000; font-weight: bold; }
        .btn-danger { background: #dc3545; color: #fff; }
        .btn:disabled { background: #555; color: #888; cursor: not-allowed; }
        .status { padding: 10px 15px; border-radius: 4px; margin-top: 15px; display: none; }
        .status-success { display: block; background: #1b4332; color: #95d5b2; }
        .status-error { display: block; background: #5c2323; color: #f8d7da; }
        .status-info { display: block; background: #1e3a5f; color: #89cff0; }
        .table { width: 100%; border-collapse: collapse; margin-top: 10px; font-size: 0.9em; }
        .table th, .table td { padding: 10px 8px; text-align: left; border-bottom: 1px solid #333; }
        .table th { color: #aaa; font-weight: normal; font-size: 0.85em; }
        .no-data { color: #888; font-style: italic; padding: 30px; text-align: center; }
        a { color: #00d9ff; }
    </style>
</head>
<body>
<div class="container">
    <h1>Titan Downloader</h1>

    <div class="card">
        <form id="download-form">
            <div class="form-group">
                <label for="url">Media URL</label>
                <input id="url" name="url" type="text" placeholder="https://..." required />
            </div>
            <div class="form-group">
                <label for="type">Format</label>
                <select id="type" name="type">
                    <option value="{{.VideoType}}">{{.VideoType}}</option>
                    <option value="{{.AudioType}}">{{.AudioType}}</option>
                </select>
            </div>
            <div class="form-group">
                <label for="quality">Quality</label>
                <select id="quality" name="quality"></select>
            </div>
            <button id="submit" class="btn btn-primary" type="submit">Download</button>
        </form>
        <div id="status" class="status"></div>
    </div>

    <div class="card">
        <h2>History</h2>
        {{if .History}}
        <table class="table">
            <thead><tr><th>Title</th><th>Quality</th><th>Type</th><th>Date</th></tr></thead>
            <tbody>
            {{range .History}}
                <tr><td>{{.Title}}</td><td>{{.Quality}}</td><td>{{.Type}}</td><td>{{.Date}}</td></tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <div class="no-data">No downloads yet</div>
        {{end}}
        <p style="margin-top: 15px">
            <button id="wipe" class="btn btn-danger" type="button">Wipe history</button>
            <button id="purge" class="btn btn-danger" type="button">Delete downloaded files</button>
        </p>
    </div>
</div>
<script>
    const qualities = { video: {{.VideoLabels}}, audio: {{.AudioLabels}} };
    const videoType = {{.VideoType}};
    const hint = {{.Hint}};

    const typeSel = document.getElementById('type');
    const qualitySel = document.getElementById('quality');
    const statusBox = document.getElementById('status');

    function fillQualities() {
        const labels = typeSel.value === videoType ? qualities.video : qualities.audio;
        qualitySel.innerHTML = '';
        for (const label of labels) {
            const opt = document.createElement('option');
            opt.value = label;
            opt.textContent = label;
            qualitySel.appendChild(opt);
        }
    }

    function showStatus(kind, text) {
        statusBox.className = 'status status-' + kind;
        statusBox.textContent = text;
    }

    typeSel.addEventListener('change', fillQualities);
    fillQualities();

    document.getElementById('download-form').addEventListener('submit', async (e) => {
        e.preventDefault();
        const btn = document.getElementById('submit');
        btn.disabled = true;
        showStatus('info', 'Downloading, this can take a while...');
        try {
            const res = await fetch('/v1/downloads', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ url: document.getElementById('url').value, type: typeSel.value, quality: qualitySel.value }),
            });
            const body = await res.json();
            if (body.data && body.data.fileUrl) {
                const a = document.createElement('a');
                a.href = body.data.fileUrl;
                a.click();
                showStatus(res.ok ? 'success' : 'error', body.message + (body.error ? ': ' + body.error : ''));
                setTimeout(() => location.reload(), 1500);
            } else {
                showStatus('error', body.message + (body.error ? ': ' + body.error : '') + (res.status === 502 ? ' ' + hint : ''));
            }
        } catch (err) {
            showStatus('error', String(err));
        } finally {
            btn.disabled = false;
        }
    });

    document.getElementById('wipe').addEventListener('click', async () => {
        await fetch('/v1/history', { method: 'DELETE' });
        location.reload();
    });

    document.getElementById('purge').addEventListener('click', async () => {
        const res = await fetch('/v1/files', { method: 'DELETE' });
        const body = await res.json();
        showStatus(res.ok ? 'success' : 'error', body.message + (body.data ? ' (' + body.data.removed + ')' : ''));
    });
</script>
</body>
</html>
`))

// Index renders the web page with the form and the download history.
func (r *Router) Index(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.withTimeout(req)
	defer cancel()

	records, err := r.svc.History(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, consts.RespHistoryListFailed, slog.Any("error", err))

		records = nil
	}

	catalog := r.svc.Catalog()

	data := pageData{
		VideoLabels: catalog.Video,
		AudioLabels: catalog.Audio,
		VideoType:   entity.MediaKindVideo.DisplayName(),
		AudioType:   entity.MediaKindAudio.DisplayName(),
		History:     records,
		Hint:        consts.RespDownloadHint,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := indexTemplate.Execute(w, data); err != nil {
		r.log.ErrorContext(ctx, "render index", slog.Any("error", err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

package render

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 32px; background: #f0f2f5; }
        .cards { display: flex; flex-wrap: wrap; gap: 24px; align-items: flex-start; }
        .card { background: white; border-radius: 12px; padding: 16px; width: 420px; box-shadow: 0 1px 3px rgba(0,0,0,0.12); color: #1c1e21; }
        .head { display: flex; align-items: center; gap: 10px; margin-bottom: 10px; }
        .avatar { width: 40px; height: 40px; border-radius: 50%; object-fit: cover; background: #ccd0d5; }
        .name { font-weight: 600; }
        .handle, .when, .meta { color: #65676b; font-size: 13px; }
        .verified { color: #1d9bf0; }
        .title { font-weight: 700; margin: 6px 0; }
        .body { line-height: 1.45; }
        .body p { margin: 0 0 8px; }
        .stars { color: #ffa41c; font-size: 18px; letter-spacing: 1px; }
        .stars .off { color: #d5d9d9; }
        .reactions { font-size: 16px; }
        .stats { color: #65676b; font-size: 13px; margin-top: 10px; display: flex; gap: 14px; }
        .card.email { font-family: Arial, sans-serif; }
        .card.email .subject { font-size: 18px; margin-bottom: 8px; }
        .flag { color: #f4b400; }
        .card.handwritten { background: #fffbea; font-family: 'Segoe Print', 'Bradley Hand', cursive; font-size: 18px; transform: rotate(-1deg); }
    </style>
</head>
<body>
    <div class="cards">
        {{range .Cards}}
        <div class="card {{.Platform}}" id="{{.DOMID}}">
            {{if eq .Platform "email"}}
            <div class="subject">{{.Subject}}{{if .Important}} <span class="flag">»</span>{{end}}{{if .Starred}} <span class="flag">★</span>{{end}}</div>
            {{end}}
            {{if ne .Platform "handwritten"}}
            <div class="head">
                {{if .Author.AvatarURL}}<img class="avatar" src="{{.Author.AvatarURL}}" alt="{{.Initials}}">{{end}}
                <div>
                    <div class="name">{{.Author.DisplayName}}{{if .Verified}} <span class="verified">✔</span>{{end}}</div>
                    {{if eq .Platform "email"}}<div class="handle">&lt;{{.Author.EmailAddress}}&gt;</div>
                    {{else if .Author.Handle}}<div class="handle">@{{.Author.Handle}} · {{.When}}</div>{{end}}
                </div>
            </div>
            {{end}}
            {{if .Stars}}
            <div class="stars">{{range .Stars}}{{if .}}★{{else}}<span class="off">★</span>{{end}}{{end}}</div>
            {{end}}
            {{if and .Title (ne .Platform "email")}}<div class="title">{{.Title}}</div>{{end}}
            {{if .Locale}}<div class="meta">Reviewed in {{.Locale}} on {{.Date}}</div>{{end}}
            <div class="body">{{.Body}}</div>
            {{if .Reactions}}<div class="reactions">{{range .Reactions}}{{.}}{{end}}</div>{{end}}
            {{if .Stats}}<div class="stats">{{range .Stats}}<span>{{.}}</span>{{end}}</div>{{end}}
            {{if eq .Platform "handwritten"}}<div class="meta">{{.Author.DisplayName}}</div>{{end}}
        </div>
        {{end}}
    </div>
</body>
</html>`
